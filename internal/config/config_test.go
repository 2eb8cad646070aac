package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/woozymasta/biketrack/internal/config"
	"github.com/woozymasta/biketrack/internal/mapping"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := config.ParseArgs([]string{
		"--dest-url", "https://example.supabase.co/rest/v1/telemetry",
		"--dest-api-key", "anon",
	})
	require.NoError(t, err)

	require.Equal(t, ":3000", cfg.Server.Address)
	require.EqualValues(t, 65536, cfg.Server.MaxBodySize)
	require.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	require.Zero(t, cfg.Destination.Timeout)
	require.Equal(t, mapping.Presence, cfg.Destination.Policy())
	require.False(t, cfg.RateLimit.Enabled())
	require.Empty(t, cfg.GeoIP.Path)
	require.Equal(t, "info", cfg.Logger.Level)
	require.Equal(t, "console", cfg.Logger.Format)
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("BIKETRACK_DEST_URL", "http://localhost:54321/rest/v1/telemetry")
	t.Setenv("BIKETRACK_DEST_API_KEY", "anon")
	t.Setenv("BIKETRACK_DEST_LEGACY_FALLBACK", "true")
	t.Setenv("BIKETRACK_LISTEN_ADDRESS", ":8080")
	t.Setenv("BIKETRACK_RATE_LIMIT_COUNT", "10")

	cfg, err := config.ParseArgs(nil)
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "anon", cfg.Destination.APIKey)
	require.Equal(t, mapping.Legacy, cfg.Destination.Policy())
	require.True(t, cfg.RateLimit.Enabled())
}

func TestParseRequiresDestination(t *testing.T) {
	_, err := config.ParseArgs([]string{"--dest-api-key", "anon"})
	require.ErrorContains(t, err, "--dest-url")

	_, err = config.ParseArgs([]string{"--dest-url", "https://example.supabase.co/rest/v1/telemetry"})
	require.ErrorContains(t, err, "--dest-api-key")

	_, err = config.ParseArgs([]string{"--dest-url", "ftp://example.com", "--dest-api-key", "anon"})
	require.ErrorContains(t, err, "scheme")
}

func TestParseVersionSkipsValidation(t *testing.T) {
	cfg, err := config.ParseArgs([]string{"-v"})
	require.NoError(t, err)
	require.True(t, cfg.Version)
}

func TestValidate(t *testing.T) {
	cfg := config.Config{
		Server:      config.Server{MaxBodySize: 0},
		Destination: config.Destination{URL: "https://example.com", APIKey: "k"},
	}
	require.ErrorContains(t, cfg.Validate(), "max body size")

	cfg.Server.MaxBodySize = 1
	cfg.Destination.Timeout = -time.Second
	require.ErrorContains(t, cfg.Validate(), "timeout")

	cfg.Destination.Timeout = 0
	require.NoError(t, cfg.Validate())
}
