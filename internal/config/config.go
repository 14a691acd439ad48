// Package config loads runtime configuration from PAYLOADLEDGER_ prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "PAYLOADLEDGER_"

// Policy sources.
const (
	PolicySourceBuiltin  = "builtin"
	PolicySourceDatabase = "database"
)

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). postgres:// selects PostgreSQL, anything else SQLite.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:payloadledger.db?cache=shared"`

	// Enable debug logging
	Debug bool `env:"DEBUG"`

	Log LogConfig `envPrefix:"LOG_"`

	// Event name contract events are published under
	EventTopic string `env:"EVENT_TOPIC" envDefault:"hlfabricevent"`

	// IANA zone history timestamps are rendered in
	HistoryTimezone string `env:"HISTORY_TIMEZONE" envDefault:"Asia/Kolkata"`

	// Where the policy table comes from: builtin rules or the policy_rules table
	PolicySource string `env:"POLICY_SOURCE" envDefault:"builtin"`

	// Credential attribute carrying the caller's role
	UserAttribute string `env:"USER_ATTRIBUTE" envDefault:"usertype"`

	Observability ObservabilityConfig `envPrefix:"OTEL_"`

	Chaincode ChaincodeConfig `envPrefix:"CHAINCODE_"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"console"`
}

// ObservabilityConfig controls OpenTelemetry tracing. Tracing is off when Endpoint is empty.
type ObservabilityConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"payloadledger"`
	Insecure    bool   `env:"INSECURE"`
}

// ChaincodeConfig selects how payloadcc runs. With ServerAddress set the chaincode
// runs as an external service the peer connects to; otherwise it dials the peer.
type ChaincodeConfig struct {
	ID            string `env:"ID"`
	ServerAddress string `env:"SERVER_ADDRESS"`
	Version       string `env:"VERSION" envDefault:"dev"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%sDATABASE_URL is required", EnvPrefix)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%sLOG_FORMAT must be console or json, got %q", EnvPrefix, c.Log.Format)
	}
	switch c.PolicySource {
	case PolicySourceBuiltin, PolicySourceDatabase:
	default:
		return fmt.Errorf("%sPOLICY_SOURCE must be %s or %s, got %q", EnvPrefix, PolicySourceBuiltin, PolicySourceDatabase, c.PolicySource)
	}
	if strings.TrimSpace(c.EventTopic) == "" {
		return fmt.Errorf("%sEVENT_TOPIC must not be empty", EnvPrefix)
	}
	if c.Chaincode.ServerAddress != "" && c.Chaincode.ID == "" {
		return fmt.Errorf("%sCHAINCODE_ID is required when %sCHAINCODE_SERVER_ADDRESS is set", EnvPrefix, EnvPrefix)
	}
	if _, err := c.HistoryLocation(); err != nil {
		return err
	}
	return nil
}

// HistoryLocation resolves HistoryTimezone. An empty zone means UTC.
func (c *Config) HistoryLocation() (*time.Location, error) {
	if c.HistoryTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.HistoryTimezone)
	if err != nil {
		return nil, fmt.Errorf("%sHISTORY_TIMEZONE: %w", EnvPrefix, err)
	}
	return loc, nil
}
