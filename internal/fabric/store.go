// Package fabric runs the payload contract as Hyperledger Fabric chaincode.
// It adapts the chaincode stub to ledger.Store and event publication, and the
// client identity to the caller credential.
package fabric

import (
	"context"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"

	"github.com/satlaunch/payloadledger/internal/ledger"
)

// Compile-time contract assertions.
var (
	_ ledger.Store           = (*StubStore)(nil)
	_ ledger.StateIterator   = (*stateIterator)(nil)
	_ ledger.HistoryIterator = (*historyIterator)(nil)
)

// StubStore is the world-state view of one chaincode invocation.
type StubStore struct {
	stub shim.ChaincodeStubInterface
}

// NewStubStore wraps stub.
func NewStubStore(stub shim.ChaincodeStubInterface) *StubStore {
	return &StubStore{stub: stub}
}

func (s *StubStore) GetState(_ context.Context, key string) ([]byte, error) {
	return s.stub.GetState(key)
}

func (s *StubStore) PutState(_ context.Context, key string, value []byte) error {
	return s.stub.PutState(key, value)
}

func (s *StubStore) DelState(_ context.Context, key string) error {
	return s.stub.DelState(key)
}

// GetQueryResult runs the selector as a rich query, so the peer must use a
// CouchDB state database.
func (s *StubStore) GetQueryResult(_ context.Context, selector ledger.Selector) (ledger.StateIterator, error) {
	query, err := selector.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode selector: %w", err)
	}
	it, err := s.stub.GetQueryResult(string(query))
	if err != nil {
		return nil, err
	}
	return &stateIterator{it: it}, nil
}

func (s *StubStore) GetHistoryForKey(_ context.Context, key string) (ledger.HistoryIterator, error) {
	it, err := s.stub.GetHistoryForKey(key)
	if err != nil {
		return nil, err
	}
	return &historyIterator{it: it}, nil
}

type stateIterator struct {
	it shim.StateQueryIteratorInterface
}

func (i *stateIterator) HasNext() bool { return i.it.HasNext() }

func (i *stateIterator) Next() (ledger.KV, error) {
	kv, err := i.it.Next()
	if err != nil {
		return ledger.KV{}, err
	}
	return ledger.KV{Key: kv.GetKey(), Value: kv.GetValue()}, nil
}

func (i *stateIterator) Close() error { return i.it.Close() }

type historyIterator struct {
	it shim.HistoryQueryIteratorInterface
}

func (i *historyIterator) HasNext() bool { return i.it.HasNext() }

func (i *historyIterator) Next() (ledger.Modification, error) {
	km, err := i.it.Next()
	if err != nil {
		return ledger.Modification{}, err
	}
	return modification(km), nil
}

func (i *historyIterator) Close() error { return i.it.Close() }

func modification(km *queryresult.KeyModification) ledger.Modification {
	m := ledger.Modification{
		TxID:     km.GetTxId(),
		IsDelete: km.GetIsDelete(),
		Value:    km.GetValue(),
	}
	if ts := km.GetTimestamp(); ts != nil {
		m.Timestamp = ts.AsTime()
	}
	return m
}

// StubPublisher sets the chaincode event of the current transaction. Fabric
// keeps one event per transaction, so a later Publish replaces an earlier one.
type StubPublisher struct {
	stub shim.ChaincodeStubInterface
}

// NewStubPublisher wraps stub.
func NewStubPublisher(stub shim.ChaincodeStubInterface) *StubPublisher {
	return &StubPublisher{stub: stub}
}

func (p *StubPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	return p.stub.SetEvent(topic, payload)
}
