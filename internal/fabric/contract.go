package fabric

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-contract-api-go/metadata"
	"github.com/rs/zerolog"

	"github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/contract"
)

// ContractName is the namespace the payload transactions are registered under.
const ContractName = "payload"

// PayloadContract exposes the lifecycle service as chaincode transactions.
type PayloadContract struct {
	contractapi.Contract
	svc    *contract.Service
	logger zerolog.Logger
}

// NewPayloadContract wraps svc. version is reported in the contract metadata.
func NewPayloadContract(svc *contract.Service, logger zerolog.Logger, version string) *PayloadContract {
	c := &PayloadContract{svc: svc, logger: logger}
	c.Name = ContractName
	c.Info = metadata.InfoMetadata{
		Title:   "Payload lifecycle",
		Version: version,
	}
	return c
}

// NewChaincode builds the chaincode for the given contract.
func NewChaincode(c *PayloadContract) (*contractapi.ContractChaincode, error) {
	cc, err := contractapi.NewChaincode(c)
	if err != nil {
		return nil, fmt.Errorf("create chaincode: %w", err)
	}
	cc.Info.Title = "payloadledger"
	cc.Info.Version = c.Info.Version
	return cc, nil
}

func txContext(ctx contractapi.TransactionContextInterface) contract.TxContext {
	stub := ctx.GetStub()
	tc := contract.TxContext{
		Ledger: NewStubStore(stub),
		Events: NewStubPublisher(stub),
	}
	if id := ctx.GetClientIdentity(); id != nil {
		tc.Caller = id
	}
	return tc
}

func (c *PayloadContract) Init(ctx contractapi.TransactionContextInterface) error {
	c.logger.Info().Str("txId", ctx.GetStub().GetTxID()).Msg("payload contract instantiated")
	return nil
}

// BookMyFlight books a payload from its JSON details document.
func (c *PayloadContract) BookMyFlight(ctx contractapi.TransactionContextInterface, details string) (*asset.Asset, error) {
	d, err := asset.ParseDetails([]byte(details))
	if err != nil {
		return nil, err
	}
	return c.svc.Book(context.Background(), txContext(ctx), d)
}

func (c *PayloadContract) VerifyPayload(ctx contractapi.TransactionContextInterface, id string) (*asset.Asset, error) {
	return c.svc.Verify(context.Background(), txContext(ctx), id)
}

func (c *PayloadContract) ShipPayload(ctx contractapi.TransactionContextInterface, id string) (*asset.Asset, error) {
	return c.svc.Ship(context.Background(), txContext(ctx), id)
}

func (c *PayloadContract) ReceivePayload(ctx contractapi.TransactionContextInterface, id string) (*asset.Asset, error) {
	return c.svc.Receive(context.Background(), txContext(ctx), id)
}

func (c *PayloadContract) ClearForFlight(ctx contractapi.TransactionContextInterface, id string) (*asset.Asset, error) {
	return c.svc.ClearForFlight(context.Background(), txContext(ctx), id)
}

// ModifyPayload replaces the mutable fields from a JSON details document.
func (c *PayloadContract) ModifyPayload(ctx contractapi.TransactionContextInterface, details string) (*asset.Asset, error) {
	d, err := asset.ParseDetails([]byte(details))
	if err != nil {
		return nil, err
	}
	return c.svc.Modify(context.Background(), txContext(ctx), d)
}

func (c *PayloadContract) DeleteAsset(ctx contractapi.TransactionContextInterface, id string) error {
	return c.svc.Delete(context.Background(), txContext(ctx), id)
}

func (c *PayloadContract) QueryAsset(ctx contractapi.TransactionContextInterface, id string) (*asset.Asset, error) {
	return c.svc.QueryOne(context.Background(), txContext(ctx), id)
}

// QueryAllAssets returns a JSON array of the records visible to the caller.
func (c *PayloadContract) QueryAllAssets(ctx contractapi.TransactionContextInterface) (string, error) {
	snaps, err := c.svc.QueryAll(context.Background(), txContext(ctx))
	if err != nil {
		return "", err
	}
	return encode(snaps)
}

// GetAssetHistory returns a JSON array of the record's commits, oldest first.
func (c *PayloadContract) GetAssetHistory(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	entries, err := c.svc.History(context.Background(), txContext(ctx), id)
	if err != nil {
		return "", err
	}
	return encode(entries)
}

func (c *PayloadContract) GetCurrentUserId(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := c.svc.WhoAmI(txContext(ctx))
	if err != nil {
		return "", err
	}
	return caller.Subject, nil
}

func (c *PayloadContract) GetCurrentUserType(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := c.svc.WhoAmI(txContext(ctx))
	if err != nil {
		return "", err
	}
	return caller.Role, nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}
