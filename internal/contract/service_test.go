package contract

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/ledger/memory"
	"github.com/satlaunch/payloadledger/internal/logging"
)

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

type published struct {
	topic   string
	payload string
}

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic: topic, payload: string(payload)})
	return nil
}

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.events...)
}

type harness struct {
	t      *testing.T
	svc    *Service
	ledger *memory.Ledger
	events *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine, err := auth.NewEngine(auth.DefaultRules)
	require.NoError(t, err)

	clock := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	l := memory.New(memory.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	return &harness{
		t:      t,
		svc:    NewService(engine, identity.NewResolver("")).WithLogger(logging.ForTests()),
		ledger: l,
		events: &recorder{},
	}
}

// as returns a fresh transaction context for the given caller.
func (h *harness) as(subject, role string) TxContext {
	return TxContext{
		Ledger: h.ledger.Begin(""),
		Caller: identity.NewStaticCredential(subject, role),
		Events: h.events,
	}
}

func (h *harness) admin() TxContext {
	return h.as("admin", "")
}

func (h *harness) raw(key string) []byte {
	h.t.Helper()
	v, err := h.ledger.Begin("").GetState(context.Background(), key)
	require.NoError(h.t, err)
	return v
}

func (h *harness) book(id, owner string) *asset.Asset {
	h.t.Helper()
	a, err := h.svc.Book(context.Background(), h.as(owner, auth.RolePayloadOwner), asset.Details{
		ID:            id,
		Owner:         owner,
		FrequencyBand: "2GHz",
		CubesatSize:   "2U",
		Mass:          "2kg",
	})
	require.NoError(h.t, err)
	return a
}

func p1Details() asset.Details {
	return asset.Details{ID: "p1", Owner: "alice", FrequencyBand: "2GHz", CubesatSize: "2U", Mass: "2kg"}
}
