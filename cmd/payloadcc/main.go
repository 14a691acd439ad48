// Command payloadcc runs the payload lifecycle contract as Fabric chaincode.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/rs/zerolog"

	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/config"
	"github.com/satlaunch/payloadledger/internal/contract"
	"github.com/satlaunch/payloadledger/internal/fabric"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/logging"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Init(context.Background(), cfg.Observability, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	// Chaincode has no database; the policy table is always the built-in one.
	if cfg.PolicySource != config.PolicySourceBuiltin {
		logger.Warn().Str("policy_source", cfg.PolicySource).Msg("chaincode ignores policy source, using built-in rules")
	}
	engine, err := auth.NewEngine(auth.DefaultRules)
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewContractMetrics(nil)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	svc := contract.NewService(engine, identity.NewResolver(cfg.UserAttribute)).
		WithLogger(logger).
		WithTopic(cfg.EventTopic).
		WithMetrics(metrics)

	cc, err := fabric.NewChaincode(fabric.NewPayloadContract(svc, logger, cfg.Chaincode.Version))
	if err != nil {
		return err
	}

	return serve(cfg.Chaincode, cc, logger)
}

func serve(cfg config.ChaincodeConfig, cc shim.Chaincode, logger zerolog.Logger) error {
	if cfg.ServerAddress == "" {
		logger.Info().Msg("starting chaincode")
		if err := shim.Start(cc); err != nil {
			return fmt.Errorf("chaincode exited: %w", err)
		}
		return nil
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.ID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: shim.TLSProperties{Disabled: true},
	}
	logger.Info().Str("address", cfg.ServerAddress).Str("ccid", cfg.ID).Msg("starting chaincode server")
	if err := server.Start(); err != nil {
		return fmt.Errorf("chaincode server exited: %w", err)
	}
	return nil
}
