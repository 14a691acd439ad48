// Package memory provides an in-memory versioned ledger used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satlaunch/payloadledger/internal/ledger"
)

// Compile-time contract assertion.
var _ ledger.Store = (*Tx)(nil)

// Ledger keeps the latest value of every key plus its full commit history.
type Ledger struct {
	mu      sync.RWMutex
	state   map[string][]byte
	history map[string][]ledger.Modification
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		state:   make(map[string][]byte),
		history: make(map[string][]ledger.Modification),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Begin opens a transaction view. An empty txID gets a generated UUIDv7.
// Writes are visible as soon as they are made.
func (l *Ledger) Begin(txID string) *Tx {
	if txID == "" {
		txID = uuid.Must(uuid.NewV7()).String()
	}
	return &Tx{ledger: l, id: txID}
}

// Keys returns the live keys in lexical order.
func (l *Ledger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.state))
	for k := range l.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tx is a transaction view over a Ledger.
type Tx struct {
	ledger *Ledger
	id     string
}

// ID returns the transaction identifier recorded in history.
func (t *Tx) ID() string { return t.id }

func (t *Tx) GetState(_ context.Context, key string) ([]byte, error) {
	t.ledger.mu.RLock()
	defer t.ledger.mu.RUnlock()
	v, ok := t.ledger.state[key]
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

func (t *Tx) PutState(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	l := t.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state[key] = clone(value)
	l.history[key] = append(l.history[key], ledger.Modification{
		TxID:      t.id,
		Timestamp: l.now().UTC(),
		Value:     clone(value),
	})
	return nil
}

func (t *Tx) DelState(_ context.Context, key string) error {
	l := t.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state[key]; !ok {
		return nil
	}
	delete(l.state, key)
	l.history[key] = append(l.history[key], ledger.Modification{
		TxID:      t.id,
		IsDelete:  true,
		Timestamp: l.now().UTC(),
	})
	return nil
}

// GetQueryResult evaluates the selector against every live record. Records that
// cannot be decoded only match the empty selector.
func (t *Tx) GetQueryResult(_ context.Context, selector ledger.Selector) (ledger.StateIterator, error) {
	l := t.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.state))
	for k := range l.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var results []ledger.KV
	for _, k := range keys {
		v := l.state[k]
		ok, err := selector.Match(v)
		if err != nil || !ok {
			continue
		}
		results = append(results, ledger.KV{Key: k, Value: clone(v)})
	}
	return ledger.NewSliceStateIterator(results), nil
}

func (t *Tx) GetHistoryForKey(_ context.Context, key string) (ledger.HistoryIterator, error) {
	l := t.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.history[key]
	mods := make([]ledger.Modification, len(src))
	for i, m := range src {
		m.Value = clone(m.Value)
		mods[i] = m
	}
	return ledger.NewSliceHistoryIterator(mods), nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
