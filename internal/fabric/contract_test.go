package fabric

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/contract"
	apperrors "github.com/satlaunch/payloadledger/internal/errors"
	"github.com/satlaunch/payloadledger/internal/events"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/ledger"
	"github.com/satlaunch/payloadledger/internal/ledger/memory"
	"github.com/satlaunch/payloadledger/internal/logging"
)

// MockClientIdentity is a mock implementation of cid.ClientIdentity
type MockClientIdentity struct {
	mock.Mock
}

func (m *MockClientIdentity) GetID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClientIdentity) GetMSPID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClientIdentity) GetAttributeValue(name string) (string, bool, error) {
	args := m.Called(name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockClientIdentity) AssertAttributeValue(name, value string) error {
	args := m.Called(name, value)
	return args.Error(0)
}

func (m *MockClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	args := m.Called()
	cert, _ := args.Get(0).(*x509.Certificate)
	return cert, args.Error(1)
}

func x509Identity(cn, role string) *MockClientIdentity {
	id := fmt.Sprintf("x509::CN=%s,OU=client,O=Org1::CN=ca.org1.example.com,O=org1.example.com", cn)
	m := &MockClientIdentity{}
	m.On("GetID").Return(base64.StdEncoding.EncodeToString([]byte(id)), nil)
	m.On("GetAttributeValue", identity.DefaultRoleAttribute).Return(role, role != "", nil).Maybe()
	return m
}

// fakeStub answers the stub calls the contract makes from an in-memory ledger.
type fakeStub struct {
	shim.ChaincodeStubInterface
	tx       *memory.Tx
	eventErr error
	events   []string
}

func (s *fakeStub) GetTxID() string { return s.tx.ID() }

func (s *fakeStub) GetState(key string) ([]byte, error) {
	return s.tx.GetState(context.Background(), key)
}

func (s *fakeStub) PutState(key string, value []byte) error {
	return s.tx.PutState(context.Background(), key, value)
}

func (s *fakeStub) DelState(key string) error {
	return s.tx.DelState(context.Background(), key)
}

func (s *fakeStub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	sel, err := ledger.ParseSelector([]byte(query))
	if err != nil {
		return nil, err
	}
	it, err := s.tx.GetQueryResult(context.Background(), sel)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var kvs []*queryresult.KV
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, &queryresult.KV{Key: kv.Key, Value: kv.Value})
	}
	return &kvIterator{items: kvs}, nil
}

func (s *fakeStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	it, err := s.tx.GetHistoryForKey(context.Background(), key)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var mods []*queryresult.KeyModification
	for it.HasNext() {
		m, err := it.Next()
		if err != nil {
			return nil, err
		}
		mods = append(mods, &queryresult.KeyModification{
			TxId:      m.TxID,
			Value:     m.Value,
			Timestamp: timestamppb.New(m.Timestamp),
			IsDelete:  m.IsDelete,
		})
	}
	return &modIterator{items: mods}, nil
}

func (s *fakeStub) SetEvent(name string, payload []byte) error {
	if s.eventErr != nil {
		return s.eventErr
	}
	s.events = append(s.events, name+" "+string(payload))
	return nil
}

type kvIterator struct {
	items []*queryresult.KV
	pos   int
}

func (i *kvIterator) HasNext() bool { return i.pos < len(i.items) }
func (i *kvIterator) Close() error  { return nil }
func (i *kvIterator) Next() (*queryresult.KV, error) {
	if !i.HasNext() {
		return nil, ledger.ErrIteratorExhausted
	}
	i.pos++
	return i.items[i.pos-1], nil
}

type modIterator struct {
	items []*queryresult.KeyModification
	pos   int
}

func (i *modIterator) HasNext() bool { return i.pos < len(i.items) }
func (i *modIterator) Close() error  { return nil }
func (i *modIterator) Next() (*queryresult.KeyModification, error) {
	if !i.HasNext() {
		return nil, ledger.ErrIteratorExhausted
	}
	i.pos++
	return i.items[i.pos-1], nil
}

type network struct {
	t        *testing.T
	ledger   *memory.Ledger
	contract *PayloadContract
}

func newNetwork(t *testing.T) *network {
	t.Helper()
	engine, err := auth.NewEngine(auth.DefaultRules)
	require.NoError(t, err)
	logger := logging.ForTests()
	svc := contract.NewService(engine, identity.NewResolver("")).WithLogger(logger)

	clock := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return &network{
		t: t,
		ledger: memory.New(memory.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		})),
		contract: NewPayloadContract(svc, logger, "test"),
	}
}

// invoke builds a transaction context for the given caller.
func (n *network) invoke(caller *MockClientIdentity) (*contractapi.TransactionContext, *fakeStub) {
	stub := &fakeStub{tx: n.ledger.Begin("")}
	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(stub)
	ctx.SetClientIdentity(caller)
	return ctx, stub
}

const p1 = `{"id":"p1","owner":"alice","frequencyBand":"2GHz","cubesatSize":"2U","mass":"2kg"}`

func TestNewChaincodeAcceptsContract(t *testing.T) {
	n := newNetwork(t)
	cc, err := NewChaincode(n.contract)
	require.NoError(t, err)
	assert.Equal(t, ContractName, cc.DefaultContract)
	assert.Equal(t, "test", cc.Info.Version)
}

func TestChaincodeLifecycle(t *testing.T) {
	n := newNetwork(t)
	alice := x509Identity("alice", auth.RolePayloadOwner)
	bob := x509Identity("bob", auth.RoleLauncher)

	ctx, stub := n.invoke(alice)
	a, err := n.contract.BookMyFlight(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, asset.StateCreated, a.State)
	assert.Equal(t, "alice", a.ModifiedBy)
	require.Len(t, stub.events, 1)
	assert.Contains(t, stub.events[0], events.DefaultTopic+" ")
	assert.Contains(t, stub.events[0], `"event_type":"createPayload"`)

	steps := []struct {
		name   string
		caller *MockClientIdentity
		run    func(contractapi.TransactionContextInterface, string) (*asset.Asset, error)
		want   asset.State
	}{
		{name: "verify", caller: bob, run: n.contract.VerifyPayload, want: asset.StateDetailsVerified},
		{name: "ship", caller: alice, run: n.contract.ShipPayload, want: asset.StateInTransit},
		{name: "receive", caller: bob, run: n.contract.ReceivePayload, want: asset.StateReceived},
		{name: "clear", caller: bob, run: n.contract.ClearForFlight, want: asset.StateClearForFlight},
	}
	for _, step := range steps {
		ctx, _ := n.invoke(step.caller)
		a, err := step.run(ctx, "p1")
		require.NoError(t, err, step.name)
		assert.Equal(t, step.want, a.State, step.name)
	}

	ctx, _ = n.invoke(x509Identity("erin", auth.RoleRegulator))
	out, err := n.contract.GetAssetHistory(ctx, "p1")
	require.NoError(t, err)

	var history []struct {
		TxID      string      `json:"txId"`
		IsDelete  bool        `json:"isDelete"`
		Timestamp time.Time   `json:"timestamp"`
		Value     asset.Asset `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 5)
	for i, want := range []asset.State{
		asset.StateCreated, asset.StateDetailsVerified, asset.StateInTransit,
		asset.StateReceived, asset.StateClearForFlight,
	} {
		assert.Equal(t, want, history[i].Value.State)
		assert.False(t, history[i].IsDelete)
	}
	assert.Equal(t, "bob", history[4].Value.Launcher)
}

func TestChaincodeQueries(t *testing.T) {
	n := newNetwork(t)
	ctx, _ := n.invoke(x509Identity("alice", auth.RolePayloadOwner))
	_, err := n.contract.BookMyFlight(ctx, p1)
	require.NoError(t, err)
	ctx, _ = n.invoke(x509Identity("carol", auth.RolePayloadOwner))
	_, err = n.contract.BookMyFlight(ctx, `{"id":"p2","owner":"carol","frequencyBand":"5GHz","cubesatSize":"1U","mass":"1kg"}`)
	require.NoError(t, err)

	t.Run("owner sees own records", func(t *testing.T) {
		ctx, _ := n.invoke(x509Identity("carol", auth.RolePayloadOwner))
		out, err := n.contract.QueryAllAssets(ctx)
		require.NoError(t, err)
		var got []asset.Asset
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "p2", got[0].AssetID)
	})

	t.Run("launcher sees unassigned records", func(t *testing.T) {
		ctx, _ := n.invoke(x509Identity("bob", auth.RoleLauncher))
		out, err := n.contract.QueryAllAssets(ctx)
		require.NoError(t, err)
		var got []asset.Asset
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Len(t, got, 2)
	})

	t.Run("unscoped role gets empty array", func(t *testing.T) {
		ctx, _ := n.invoke(x509Identity("sam", auth.RoleShipper))
		out, err := n.contract.QueryAllAssets(ctx)
		require.NoError(t, err)
		assert.Equal(t, "[]", out)
	})

	t.Run("query one publishes audit event", func(t *testing.T) {
		ctx, stub := n.invoke(x509Identity("bob", auth.RoleLauncher))
		_, err := n.contract.QueryAsset(ctx, "p1")
		assert.ErrorIs(t, err, apperrors.ErrAuthorization)
		require.Len(t, stub.events, 1)
		assert.Contains(t, stub.events[0], "Query Asset was executed for p1")
	})

	t.Run("admin reads any record", func(t *testing.T) {
		ctx, _ := n.invoke(x509Identity("admin", ""))
		a, err := n.contract.QueryAsset(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "carol", a.Owner)
	})
}

func TestChaincodeBookRejectsBadDocument(t *testing.T) {
	n := newNetwork(t)
	ctx, _ := n.invoke(x509Identity("alice", auth.RolePayloadOwner))

	_, err := n.contract.BookMyFlight(ctx, `{"id":`)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = n.contract.BookMyFlight(ctx, `{"id":"p1","owner":"alice","cubesatSize":"4U"}`)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = n.contract.ModifyPayload(ctx, `not json`)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestChaincodeEventFailureDoesNotAbort(t *testing.T) {
	n := newNetwork(t)
	ctx, stub := n.invoke(x509Identity("alice", auth.RolePayloadOwner))
	stub.eventErr = errors.New("event buffer full")

	_, err := n.contract.BookMyFlight(ctx, p1)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ledger.Keys())
}

func TestChaincodeModifyAndDelete(t *testing.T) {
	n := newNetwork(t)
	alice := x509Identity("alice", auth.RolePayloadOwner)
	ctx, _ := n.invoke(alice)
	_, err := n.contract.BookMyFlight(ctx, p1)
	require.NoError(t, err)

	ctx, _ = n.invoke(alice)
	a, err := n.contract.ModifyPayload(ctx, `{"id":"p1","frequencyBand":"8GHz","cubesatSize":"3U","mass":"4kg"}`)
	require.NoError(t, err)
	assert.Equal(t, asset.StateDetailsModified, a.State)
	assert.Equal(t, "8GHz", a.FrequencyBand)

	ctx, _ = n.invoke(x509Identity("bob", auth.RoleLauncher))
	assert.ErrorIs(t, n.contract.DeleteAsset(ctx, "p1"), apperrors.ErrAuthorization)

	ctx, _ = n.invoke(alice)
	require.NoError(t, n.contract.DeleteAsset(ctx, "p1"))
	assert.Empty(t, n.ledger.Keys())
}

func TestChaincodeCurrentUser(t *testing.T) {
	n := newNetwork(t)

	tests := []struct {
		name        string
		caller      *MockClientIdentity
		wantSubject string
		wantRole    string
	}{
		{name: "owner", caller: x509Identity("alice", auth.RolePayloadOwner), wantSubject: "alice", wantRole: auth.RolePayloadOwner},
		{name: "admin", caller: x509Identity("admin", ""), wantSubject: "admin", wantRole: auth.RoleAdmin},
		{name: "no attribute", caller: x509Identity("nobody", ""), wantSubject: "nobody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := n.invoke(tt.caller)
			subject, err := n.contract.GetCurrentUserId(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)

			role, err := n.contract.GetCurrentUserType(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, role)
		})
	}

	t.Run("identity error", func(t *testing.T) {
		m := &MockClientIdentity{}
		m.On("GetID").Return("", errors.New("no certificate"))
		ctx, _ := n.invoke(m)
		_, err := n.contract.GetCurrentUserId(ctx)
		assert.ErrorIs(t, err, apperrors.ErrAuthorization)
		m.AssertExpectations(t)
	})
}

func TestStubStoreHistoryTimestamps(t *testing.T) {
	n := newNetwork(t)
	stub := &fakeStub{tx: n.ledger.Begin("tx-1")}
	store := NewStubStore(stub)
	ctx := context.Background()

	require.NoError(t, store.PutState(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, store.DelState(ctx, "k"))

	it, err := store.GetHistoryForKey(ctx, "k")
	require.NoError(t, err)
	defer it.Close()

	var mods []ledger.Modification
	for it.HasNext() {
		m, err := it.Next()
		require.NoError(t, err)
		mods = append(mods, m)
	}
	require.Len(t, mods, 2)
	assert.Equal(t, "tx-1", mods[0].TxID)
	assert.True(t, time.Date(2026, 10, 1, 0, 1, 0, 0, time.UTC).Equal(mods[0].Timestamp))
	assert.True(t, mods[1].IsDelete)
	assert.True(t, mods[0].Timestamp.Before(mods[1].Timestamp))
}

func TestModificationWithoutTimestamp(t *testing.T) {
	m := modification(&queryresult.KeyModification{TxId: "t", Value: []byte("v")})
	assert.Equal(t, "t", m.TxID)
	assert.True(t, m.Timestamp.IsZero())
}
