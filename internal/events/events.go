// Package events publishes ledger events to subscribers outside the transaction.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/satlaunch/payloadledger/internal/asset"
)

// DefaultTopic is the event name every contract event is published under.
const DefaultTopic = "hlfabricevent"

// Event types carried in the payload.
const (
	TypeCreatePayload = "createPayload"
)

// Publisher emits an event. Delivery is best effort; callers log and continue on error.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic string, payload []byte) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, payload []byte) error {
	return f(ctx, topic, payload)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, string, []byte) error { return nil })

// AssetEvent is the record as written plus its event type.
type AssetEvent struct {
	asset.Asset
	EventType string `json:"event_type"`
}

// NewAssetEvent encodes a as an event of the given type.
func NewAssetEvent(eventType string, a *asset.Asset) ([]byte, error) {
	b, err := json.Marshal(AssetEvent{Asset: *a, EventType: eventType})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return b, nil
}

// QueryEvent audits a point query.
type QueryEvent struct {
	Type    string `json:"type"`
	AssetID string `json:"assetId"`
	Desc    string `json:"desc"`
}

// NewQueryEvent encodes the audit event for a query of assetID.
func NewQueryEvent(topic, assetID string) ([]byte, error) {
	b, err := json.Marshal(QueryEvent{
		Type:    topic,
		AssetID: assetID,
		Desc:    "Query Asset was executed for " + assetID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode query event: %w", err)
	}
	return b, nil
}

// LogPublisher writes every event to a logger.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher logging at info level.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.logger.Info().Str("topic", topic).RawJSON("payload", payload).Msg("event published")
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, payload []byte) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
