package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/satlaunch/payloadledger/cmd/payloadctl/cmd/asset"
	"github.com/satlaunch/payloadledger/cmd/payloadctl/cmd/policy"
	"github.com/satlaunch/payloadledger/cmd/payloadctl/internal/app"
	"github.com/satlaunch/payloadledger/internal/config"
	"github.com/satlaunch/payloadledger/internal/logging"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

var (
	dbURL        string
	debug        bool
	logFormat    string
	policySource string

	shutdownTelemetry func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "payloadctl",
	Short: "Payload ledger CLI - satellite payload booking and launch clearance",
	Long: `payloadctl runs the payload lifecycle contract against a SQL-backed ledger.
Payload owners book and ship payloads, launchers verify, receive and clear them
for flight, and customers and regulators audit their history.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		applyFlagOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return err
		}

		shutdownTelemetry, err = telemetry.Init(cmd.Context(), cfg.Observability, logger)
		if err != nil {
			return err
		}

		cmd.SetContext(app.Inject(cmd.Context(), &app.App{Config: cfg, Logger: logger}))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTelemetry(ctx)
	},
}

// applyFlagOverrides lets explicitly set flags win over environment values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.DatabaseURL = dbURL
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
		if debug {
			cfg.Log.Level = "debug"
		}
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("policy-source") {
		cfg.PolicySource = policySource
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Database connection URL (env: PAYLOADLEDGER_DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (env: PAYLOADLEDGER_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log output format: console or json (env: PAYLOADLEDGER_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&policySource, "policy-source", "", "Policy table source: builtin or database (env: PAYLOADLEDGER_POLICY_SOURCE)")

	rootCmd.AddCommand(asset.AssetCmd)
	rootCmd.AddCommand(policy.PolicyCmd)
}
