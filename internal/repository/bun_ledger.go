package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/satlaunch/payloadledger/internal/db/bunx"
	"github.com/satlaunch/payloadledger/internal/db/models"
	"github.com/satlaunch/payloadledger/internal/ledger"
)

// Compile-time contract assertion.
var _ ledger.Store = (*BunTx)(nil)

// BunLedger persists the versioned ledger using Bun ORM against PostgreSQL or SQLite.
// Every submitted transaction commits its state writes, history entries and
// events atomically.
type BunLedger struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunLedger constructs a ledger backed by Bun.
func NewBunLedger(db *bun.DB) *BunLedger {
	return &BunLedger{db: db, now: time.Now}
}

// WithClock overrides the commit timestamp source.
func (l *BunLedger) WithClock(now func() time.Time) *BunLedger {
	l.now = now
	return l
}

// Submit runs fn inside a database transaction and commits it when fn returns nil.
// An empty txID gets a generated UUIDv7. Returns the transaction id.
func (l *BunLedger) Submit(ctx context.Context, txID string, fn func(ctx context.Context, tx *BunTx) error) (string, error) {
	if txID == "" {
		txID = bunx.NewUUIDv7()
	}
	committedAt := l.now().UTC()

	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunTx{db: tx, id: txID, committedAt: committedAt})
	})
	if err != nil {
		return txID, err
	}
	return txID, nil
}

// ListEvents returns the most recent events, newest first.
func (l *BunLedger) ListEvents(ctx context.Context, limit int) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	q := l.db.NewSelect().Model(&events).Order("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []models.LedgerEvent{}
	}
	return events, nil
}

// BunTx is the ledger view of one submitted transaction.
type BunTx struct {
	db          bun.IDB
	id          string
	committedAt time.Time
}

// ID returns the transaction id recorded in history.
func (t *BunTx) ID() string { return t.id }

func (t *BunTx) GetState(ctx context.Context, key string) ([]byte, error) {
	row := new(models.WorldState)
	err := t.db.NewSelect().Model(row).Where("key = ?", key).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query world state: %w", err)
	}
	return row.Value, nil
}

func (t *BunTx) PutState(ctx context.Context, key string, value []byte) error {
	if err := models.ValidateKey(key); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	row := &models.WorldState{Key: key, Value: value, TxID: t.id, UpdatedAt: t.committedAt}
	_, err := t.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("tx_id = EXCLUDED.tx_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert world state: %w", err)
	}

	return t.appendHistory(ctx, key, false, value)
}

func (t *BunTx) DelState(ctx context.Context, key string) error {
	result, err := t.db.NewDelete().
		Model((*models.WorldState)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete world state: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil
	}
	return t.appendHistory(ctx, key, true, nil)
}

// GetQueryResult evaluates the selector against every live record in key order.
// Records that are not JSON objects only match the empty selector.
func (t *BunTx) GetQueryResult(ctx context.Context, selector ledger.Selector) (ledger.StateIterator, error) {
	var rows []models.WorldState
	if err := t.db.NewSelect().Model(&rows).Order("key ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan world state: %w", err)
	}

	results := make([]ledger.KV, 0, len(rows))
	for _, row := range rows {
		ok, err := selector.Match(row.Value)
		if err != nil || !ok {
			continue
		}
		results = append(results, ledger.KV{Key: row.Key, Value: row.Value})
	}
	return ledger.NewSliceStateIterator(results), nil
}

func (t *BunTx) GetHistoryForKey(ctx context.Context, key string) (ledger.HistoryIterator, error) {
	var rows []models.HistoryEntry
	err := t.db.NewSelect().
		Model(&rows).
		Where("key = ?", key).
		Order("committed_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	mods := make([]ledger.Modification, 0, len(rows))
	for _, row := range rows {
		mods = append(mods, ledger.Modification{
			TxID:      row.TxID,
			IsDelete:  row.IsDelete,
			Timestamp: row.CommittedAt.UTC(),
			Value:     row.Value,
		})
	}
	return ledger.NewSliceHistoryIterator(mods), nil
}

// Publish records an event in the outbox. It commits with the transaction.
// The insert runs in a savepoint; a failed insert is rolled back on its own
// and leaves the surrounding transaction usable (PostgreSQL otherwise aborts it).
func (t *BunTx) Publish(ctx context.Context, topic string, payload []byte) error {
	event := &models.LedgerEvent{
		ID:        bunx.NewUUIDv7(),
		TxID:      t.id,
		Topic:     topic,
		Payload:   payload,
		CreatedAt: t.committedAt,
	}
	err := t.db.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
		_, err := sp.NewInsert().Model(event).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *BunTx) appendHistory(ctx context.Context, key string, isDelete bool, value []byte) error {
	entry := &models.HistoryEntry{
		ID:          bunx.NewUUIDv7(),
		Key:         key,
		TxID:        t.id,
		IsDelete:    isDelete,
		Value:       value,
		CommittedAt: t.committedAt,
	}
	if _, err := t.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
