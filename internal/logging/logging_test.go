package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{raw: "", want: zerolog.InfoLevel, ok: true},
		{raw: "DEBUG", want: zerolog.DebugLevel, ok: true},
		{raw: " warning ", want: zerolog.WarnLevel, ok: true},
		{raw: "off", want: zerolog.Disabled, ok: true},
		{raw: "loud", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLevel(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("assetId", "p1").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"assetId":"p1"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "info"})
	require.NoError(t, err)

	logger.Info().Msg("booked")
	assert.Contains(t, buf.String(), "booked")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestForTestsSilentByDefault(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, zerolog.Disabled, ForTests().GetLevel())
}
