// Package ledger describes the versioned key-value store the lifecycle engine runs on.
//
// Implementations must give per-key read-your-write visibility inside a transaction
// and must serialize concurrent writers to the same key. The engine performs no
// compare-and-swap or retry of its own.
package ledger

import (
	"context"
	"time"
)

// KV is one record returned by a selector query.
type KV struct {
	Key   string
	Value []byte
}

// Modification is one committed change to a key.
type Modification struct {
	TxID      string
	IsDelete  bool
	Timestamp time.Time
	Value     []byte
}

// StateIterator walks the results of a selector query. It is finite and
// cannot be restarted; Close must be called once iteration stops.
type StateIterator interface {
	HasNext() bool
	Next() (KV, error)
	Close() error
}

// HistoryIterator walks the commit history of one key, oldest first.
type HistoryIterator interface {
	HasNext() bool
	Next() (Modification, error)
	Close() error
}

// Store is the world-state view of a single transaction.
type Store interface {
	// GetState returns nil, nil when key is absent.
	GetState(ctx context.Context, key string) ([]byte, error)
	PutState(ctx context.Context, key string, value []byte) error
	DelState(ctx context.Context, key string) error
	GetQueryResult(ctx context.Context, selector Selector) (StateIterator, error)
	GetHistoryForKey(ctx context.Context, key string) (HistoryIterator, error)
}

// SliceStateIterator iterates over an already materialized result set.
type SliceStateIterator struct {
	items []KV
	pos   int
}

// NewSliceStateIterator wraps items in a StateIterator.
func NewSliceStateIterator(items []KV) *SliceStateIterator {
	return &SliceStateIterator{items: items}
}

func (it *SliceStateIterator) HasNext() bool { return it.pos < len(it.items) }

func (it *SliceStateIterator) Next() (KV, error) {
	if !it.HasNext() {
		return KV{}, ErrIteratorExhausted
	}
	kv := it.items[it.pos]
	it.pos++
	return kv, nil
}

func (it *SliceStateIterator) Close() error {
	it.pos = len(it.items)
	return nil
}

// SliceHistoryIterator iterates over an already materialized history.
type SliceHistoryIterator struct {
	items []Modification
	pos   int
}

// NewSliceHistoryIterator wraps items in a HistoryIterator.
func NewSliceHistoryIterator(items []Modification) *SliceHistoryIterator {
	return &SliceHistoryIterator{items: items}
}

func (it *SliceHistoryIterator) HasNext() bool { return it.pos < len(it.items) }

func (it *SliceHistoryIterator) Next() (Modification, error) {
	if !it.HasNext() {
		return Modification{}, ErrIteratorExhausted
	}
	m := it.items[it.pos]
	it.pos++
	return m, nil
}

func (it *SliceHistoryIterator) Close() error {
	it.pos = len(it.items)
	return nil
}
