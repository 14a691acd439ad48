// Package logging builds the zerolog loggers used across the module.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the level of test loggers.
const EnvLogLevel = "PAYLOADLEDGER_LOG_LEVEL"

// Options selects level and output format.
type Options struct {
	Level  string
	Format string // console or json
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (zerolog.Logger, error) {
	level, ok := ParseLevel(opts.Level)
	if !ok {
		return zerolog.Nop(), fmt.Errorf("unknown log level %q", opts.Level)
	}

	switch opts.Format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// ForTests returns a logger that discards output unless EnvLogLevel is set.
func ForTests() zerolog.Logger {
	level, ok := ParseLevel(os.Getenv(EnvLogLevel))
	if !ok || strings.TrimSpace(os.Getenv(EnvLogLevel)) == "" {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).Level(level)
}

// ParseLevel maps a level name onto zerolog. An empty name is info.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, true
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.NoLevel, false
	}
}
