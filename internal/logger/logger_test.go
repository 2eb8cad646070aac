package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/biketrack/internal/logger"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, logger.ParseLevel("debug"))
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel("loud"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("json", &buf)
	l.Info().Str("device", "A7670E_001").Msg("Telemetry relayed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "A7670E_001", line["device"])
	require.Equal(t, "Telemetry relayed", line["message"])
	require.Contains(t, line, "time")
}

func TestNewConsoleHasNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("console", &buf)
	l.Warn().Msg("Relay to destination failed")

	require.Contains(t, buf.String(), "Relay to destination failed")
	require.NotContains(t, buf.String(), "\x1b[")
}
