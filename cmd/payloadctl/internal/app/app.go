// Package app holds the state shared by payloadctl commands. The root command
// builds an App in its PersistentPreRunE and injects it into the cobra context.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/config"
	"github.com/satlaunch/payloadledger/internal/contract"
	"github.com/satlaunch/payloadledger/internal/db/bunx"
	"github.com/satlaunch/payloadledger/internal/events"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/repository"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

type contextKey string

const appKey contextKey = "payloadctl-app"

// App is the configuration and logger of one payloadctl invocation.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// Inject adds a to ctx.
func Inject(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, appKey, a)
}

// FromContext retrieves the App. Returns (nil, false) if it is not present.
func FromContext(ctx context.Context) (*App, bool) {
	a, ok := ctx.Value(appKey).(*App)
	return a, ok
}

// MustFromContext retrieves the App or panics. Only command RunE functions
// running under the root command may call it.
func MustFromContext(ctx context.Context) *App {
	a, ok := FromContext(ctx)
	if !ok {
		panic("payloadctl: app not found in context - this is a bug in payloadctl")
	}
	return a
}

// Open connects to the configured database and builds a Runtime over it.
func (a *App) Open() (*Runtime, error) {
	db, err := bunx.NewDB(a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt, err := NewRuntime(a.Config, a.Logger, db)
	if err != nil {
		_ = bunx.Close(db)
		return nil, err
	}
	return rt, nil
}

// Runtime wires the contract service to a bun-backed ledger.
type Runtime struct {
	DB      *bun.DB
	Ledger  *repository.BunLedger
	Engine  *auth.Engine
	Service *contract.Service
	logger  zerolog.Logger
}

// NewRuntime builds a Runtime over an open database whose schema is migrated.
func NewRuntime(cfg *config.Config, logger zerolog.Logger, db *bun.DB) (*Runtime, error) {
	var (
		engine *auth.Engine
		err    error
	)
	switch cfg.PolicySource {
	case config.PolicySourceDatabase:
		engine, err = auth.NewPersistentEngine(db)
	default:
		engine, err = auth.NewEngine(auth.DefaultRules)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	metrics, err := telemetry.NewContractMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	svc := contract.NewService(engine, identity.NewResolver(cfg.UserAttribute)).
		WithLogger(logger).
		WithTopic(cfg.EventTopic).
		WithMetrics(metrics)

	return &Runtime{
		DB:      db,
		Ledger:  repository.NewBunLedger(db),
		Engine:  engine,
		Service: svc,
		logger:  logger,
	}, nil
}

// Close releases the database connection.
func (r *Runtime) Close() error {
	return bunx.Close(r.DB)
}

// Submit runs fn as caller inside one ledger transaction. Events are written to
// the outbox with the transaction and echoed to the log. Returns the transaction id.
func (r *Runtime) Submit(ctx context.Context, caller identity.Credential, fn func(ctx context.Context, tc contract.TxContext) error) (string, error) {
	return r.Ledger.Submit(ctx, "", func(ctx context.Context, tx *repository.BunTx) error {
		tc := contract.TxContext{
			Ledger: tx,
			Caller: caller,
			Events: events.Multi{tx, events.NewLogPublisher(r.logger)},
		}
		return fn(ctx, tc)
	})
}
