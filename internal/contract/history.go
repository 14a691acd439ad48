package contract

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/satlaunch/payloadledger/internal/auth"
	apperrors "github.com/satlaunch/payloadledger/internal/errors"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

// HistoryEntry is one committed change to a record.
type HistoryEntry struct {
	TxID      string    `json:"txId"`
	IsDelete  bool      `json:"isDelete"`
	Timestamp time.Time `json:"timestamp"`
	Value     Snapshot  `json:"value"`
}

// History returns the commit history of an existing record, oldest first.
// Entries whose value does not decode carry the raw text instead.
func (s *Service) History(ctx context.Context, tc TxContext, id string) (_ []HistoryEntry, err error) {
	ctx, span, done := s.startSpan(ctx, "History", id)
	defer func() { done(err) }()

	id, err = requireID(id)
	if err != nil {
		return nil, err
	}

	if _, err := fetch(ctx, tc.Ledger, id); err != nil {
		return nil, err
	}
	caller, err := s.resolve(tc, span)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, span, caller, auth.AssetHistory, id, ""); err != nil {
		return nil, err
	}

	it, err := tc.Ledger.GetHistoryForKey(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, err, "read history of %q", id)
	}
	defer it.Close()

	entries := []HistoryEntry{}
	for it.HasNext() {
		m, err := it.Next()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, err, "read history of %q", id)
		}
		entry := HistoryEntry{
			TxID:      m.TxID,
			IsDelete:  m.IsDelete,
			Timestamp: m.Timestamp,
			Value:     snapshot(id, m.Value),
		}
		if len(m.Value) > 0 && !entry.Value.Decoded() {
			s.logger.Warn().Str("assetId", id).Str("txId", m.TxID).Msg("history value does not decode, returning raw text")
		}
		entries = append(entries, entry)
	}

	span.SetAttributes(attribute.Int(telemetry.AttrResultCount, len(entries)))
	return entries, nil
}
