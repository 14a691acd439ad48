package contract

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/auth"
	apperrors "github.com/satlaunch/payloadledger/internal/errors"
	"github.com/satlaunch/payloadledger/internal/events"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

// Snapshot is a stored record decoded as an Asset, or its raw text when the
// bytes do not decode. Both nil and empty means there was no value.
type Snapshot struct {
	Key   string
	Asset *asset.Asset
	Raw   string
}

func snapshot(key string, data []byte) Snapshot {
	if len(data) == 0 {
		return Snapshot{Key: key}
	}
	a, err := asset.Unmarshal(key, data)
	if err != nil {
		return Snapshot{Key: key, Raw: string(data)}
	}
	return Snapshot{Key: key, Asset: a}
}

// Decoded reports whether the snapshot holds an Asset.
func (s Snapshot) Decoded() bool { return s.Asset != nil }

// MarshalJSON renders the asset object, the raw text as a JSON string, or null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	switch {
	case s.Asset != nil:
		return json.Marshal(s.Asset)
	case s.Raw != "":
		return json.Marshal(s.Raw)
	default:
		return []byte("null"), nil
	}
}

// QueryOne returns a single record to its owner or an admin. An audit event is
// published once the record is known to exist, whether or not access is granted.
func (s *Service) QueryOne(ctx context.Context, tc TxContext, id string) (_ *asset.Asset, err error) {
	ctx, span, done := s.startSpan(ctx, "QueryOne", id)
	defer func() { done(err) }()

	id, err = requireID(id)
	if err != nil {
		return nil, err
	}

	data, err := fetch(ctx, tc.Ledger, id)
	if err != nil {
		return nil, err
	}

	if payload, err := events.NewQueryEvent(s.topic, id); err == nil {
		s.publish(ctx, tc, id, payload)
	}

	a, err := asset.Unmarshal(id, data)
	if err != nil {
		return nil, err
	}
	caller, err := s.resolve(tc, span)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, span, caller, auth.AssetRead, id, a.Owner); err != nil {
		return nil, err
	}
	return a, nil
}

// QueryAll returns the records visible to the caller's role. Records that do
// not decode are returned as raw text. Roles without a list scope get an empty result.
func (s *Service) QueryAll(ctx context.Context, tc TxContext) (_ []Snapshot, err error) {
	ctx, span, done := s.startSpan(ctx, "QueryAll", "")
	defer func() { done(err) }()

	caller, err := s.resolve(tc, span)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, span, caller, auth.AssetList, "", ""); err != nil {
		return nil, err
	}

	selector, ok := auth.ListScope(caller)
	if !ok {
		s.logger.Debug().Str("role", caller.Role).Msg("role has no list scope")
		return []Snapshot{}, nil
	}
	if tc.Ledger == nil {
		return nil, apperrors.New(apperrors.CodeUnknown, "no ledger in transaction context")
	}

	it, err := tc.Ledger.GetQueryResult(ctx, selector)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, err, "query assets with %s", selector)
	}
	defer it.Close()

	results := []Snapshot{}
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, err, "read query result")
		}
		snap := snapshot(kv.Key, kv.Value)
		if !snap.Decoded() {
			s.logger.Warn().Str("assetId", kv.Key).Msg("record does not decode, returning raw text")
		}
		results = append(results, snap)
	}

	span.SetAttributes(attribute.Int(telemetry.AttrResultCount, len(results)))
	return results, nil
}
