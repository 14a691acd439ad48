// Package contract implements the payload lifecycle transactions: booking,
// the owner/launcher state transitions, deletion, role-scoped queries and the
// history accessor.
//
// Every operation runs against a TxContext supplied by the caller. The ledger
// view, caller credential and event sink live there; the Service itself holds
// no state between calls.
package contract

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/satlaunch/payloadledger/internal/asset"
	apperrors "github.com/satlaunch/payloadledger/internal/errors"
	"github.com/satlaunch/payloadledger/internal/events"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/ledger"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

// Authorizer evaluates the policy table. *auth.Engine implements it.
type Authorizer interface {
	Authorize(caller identity.Caller, action, assetID, owner string) error
}

// TxContext carries the per-transaction collaborators.
type TxContext struct {
	Ledger ledger.Store
	Caller identity.Credential
	// Events receives best-effort notifications. Nil drops them.
	Events events.Publisher
}

// Service runs lifecycle transactions.
type Service struct {
	policy   Authorizer
	resolver *identity.Resolver
	logger   zerolog.Logger
	topic    string
	metrics  *telemetry.ContractMetrics
}

// NewService constructs a Service evaluating policy and resolving callers with resolver.
func NewService(policy Authorizer, resolver *identity.Resolver) *Service {
	if resolver == nil {
		resolver = identity.NewResolver("")
	}
	return &Service{
		policy:   policy,
		resolver: resolver,
		logger:   zerolog.Nop(),
		topic:    events.DefaultTopic,
	}
}

// WithLogger sets the logger (optional; defaults to a no-op logger).
func (s *Service) WithLogger(logger zerolog.Logger) *Service {
	s.logger = logger.With().Str("component", "contract").Logger()
	return s
}

// WithTopic sets the event topic (optional; defaults to events.DefaultTopic).
func (s *Service) WithTopic(topic string) *Service {
	if topic != "" {
		s.topic = topic
	}
	return s
}

// WithMetrics records transaction counts and latency on m (optional).
func (s *Service) WithMetrics(m *telemetry.ContractMetrics) *Service {
	s.metrics = m
	return s
}

// startSpan opens the handler span. The returned done func records err on the
// span and in metrics, then ends the span.
func (s *Service) startSpan(ctx context.Context, name, assetID string) (context.Context, trace.Span, func(error)) {
	attrs := []attribute.KeyValue{}
	if assetID != "" {
		attrs = append(attrs, attribute.String(telemetry.AttrAssetID, assetID))
	}
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerName, "contract."+name, attrs...)
	done := func(err error) {
		telemetry.RecordError(span, err)
		outcome := telemetry.OutcomeOK
		if err != nil {
			outcome = string(apperrors.GetCode(err))
		}
		s.metrics.RecordTransaction(ctx, name, outcome, float64(time.Since(start).Microseconds())/1000)
		span.End()
	}
	return ctx, span, done
}

func (s *Service) resolve(tc TxContext, span trace.Span) (identity.Caller, error) {
	caller, err := s.resolver.Resolve(tc.Caller)
	if err != nil {
		return identity.Caller{}, err
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrCallerSubject, caller.Subject),
		attribute.String(telemetry.AttrCallerRole, caller.Role),
	)
	return caller, nil
}

// WhoAmI resolves the caller without consulting the policy table.
func (s *Service) WhoAmI(tc TxContext) (identity.Caller, error) {
	return s.resolver.Resolve(tc.Caller)
}

func (s *Service) authorize(ctx context.Context, span trace.Span, caller identity.Caller, action, assetID, owner string) error {
	if err := s.policy.Authorize(caller, action, assetID, owner); err != nil {
		telemetry.AddEvent(span, "policy.denied", attribute.String(telemetry.AttrPolicyAction, action))
		s.metrics.RecordDenied(ctx, action, caller.Role)
		return err
	}
	return nil
}

// fetch reads the raw record for id. Absence is a NotFound error.
func fetch(ctx context.Context, store ledger.Store, id string) ([]byte, error) {
	if store == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "no ledger in transaction context")
	}
	data, err := store.GetState(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, err, "read asset %q", id)
	}
	if len(data) == 0 {
		return nil, apperrors.NotFound(id)
	}
	return data, nil
}

// load reads and decodes the record for id.
func load(ctx context.Context, store ledger.Store, id string) (*asset.Asset, error) {
	data, err := fetch(ctx, store, id)
	if err != nil {
		return nil, err
	}
	return asset.Unmarshal(id, data)
}

func save(ctx context.Context, store ledger.Store, a *asset.Asset) error {
	data, err := a.Marshal()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSerialization, err, "encode asset %q", a.AssetID)
	}
	if err := store.PutState(ctx, a.AssetID, data); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "write asset %q", a.AssetID)
	}
	return nil
}

// publish emits an event without affecting the transaction outcome.
func (s *Service) publish(ctx context.Context, tc TxContext, assetID string, payload []byte) {
	if tc.Events == nil {
		return
	}
	if err := tc.Events.Publish(ctx, s.topic, payload); err != nil {
		s.logger.Warn().Err(err).Str("assetId", assetID).Str("topic", s.topic).Msg("event not published")
	}
}

// requireID rejects a blank id. The id is otherwise used verbatim, the same
// way Book stores it.
func requireID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperrors.Validation("asset id is required")
	}
	return id, nil
}
