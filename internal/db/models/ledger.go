package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// MaxKeyLength bounds ledger keys (asset ids).
const MaxKeyLength = 256

// WorldState holds the latest committed value of a ledger key.
type WorldState struct {
	bun.BaseModel `bun:"table:world_state,alias:ws"`

	Key       string    `bun:"key,pk,type:varchar(256)"`
	Value     []byte    `bun:"value,notnull"`
	TxID      string    `bun:"tx_id,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// HistoryEntry is one committed write or delete of a ledger key.
// Entries are never updated or removed.
type HistoryEntry struct {
	bun.BaseModel `bun:"table:ledger_history,alias:lh"`

	ID          string    `bun:"id,pk,type:varchar(36)"`
	Key         string    `bun:"key,notnull,type:varchar(256)"`
	TxID        string    `bun:"tx_id,notnull"`
	IsDelete    bool      `bun:"is_delete,notnull,default:false"`
	Value       []byte    `bun:"value"`
	CommittedAt time.Time `bun:"committed_at,notnull"`
}

// LedgerEvent is an event emitted by a committed transaction.
type LedgerEvent struct {
	bun.BaseModel `bun:"table:ledger_events,alias:le"`

	ID        string    `bun:"id,pk,type:varchar(36)"`
	TxID      string    `bun:"tx_id,notnull"`
	Topic     string    `bun:"topic,notnull"`
	Payload   []byte    `bun:"payload"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// ValidateKey verifies a ledger key before it is written.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	if len(key) > MaxKeyLength {
		return errors.New("key exceeds maximum length")
	}
	return nil
}
