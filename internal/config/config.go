// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/biketrack/internal/logger"
	"github.com/woozymasta/biketrack/internal/mapping"
	"github.com/woozymasta/biketrack/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server      Server        `group:"Server Options" env-namespace:"BIKETRACK"`
	Destination Destination   `group:"Destination Options" namespace:"dest" env-namespace:"BIKETRACK_DEST"`
	RateLimit   RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"BIKETRACK_RATE_LIMIT"`
	GeoIP       GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"BIKETRACK_GEOIP"`
	Logger      logger.Config `group:"Logger Options" namespace:"log" env-namespace:"BIKETRACK_LOG"`

	GenerateCount int  `long:"gen-fake-data" hidden:"true"`
	Version       bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address      string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":3000"`
	MaxBodySize  int64         `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for incoming requests" default:"65536"`
	WriteTimeout time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"Response write timeout, includes the outbound call" default:"30s"`
	TrustProxy   bool          `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Destination holds the REST store endpoint and credentials.
type Destination struct {
	// betteralign:ignore

	URL            string        `short:"u" long:"url" env:"URL" description:"Destination table endpoint URL"`
	APIKey         string        `short:"k" long:"api-key" env:"API_KEY" description:"Destination API key, also sent as bearer token"`
	Timeout        time.Duration `long:"timeout" env:"TIMEOUT" description:"Outbound request timeout, 0 keeps transport defaults" default:"0"`
	LegacyFallback bool          `long:"legacy-fallback" env:"LEGACY_FALLBACK" description:"Let falsy short fields fall through to their long alias"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	Count  int           `long:"count" env:"COUNT" description:"Requests allowed per IP within window, 0 disables" default:"0"`
	Window time.Duration `long:"window" env:"WINDOW" description:"Rate limit window duration" default:"1m"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// Policy returns the field resolution policy selected by the flags.
func (d Destination) Policy() mapping.Policy {
	if d.LegacyFallback {
		return mapping.Legacy
	}

	return mapping.Presence
}

// Enabled reports whether per-IP rate limiting is on.
func (r RateLimit) Enabled() bool {
	return r.Count > 0 && r.Window > 0
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args and environment into a Config and validates it.
// Help and version requests skip validation.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Version {
		return &cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that cannot be expressed with struct tags.
func (c *Config) Validate() error {
	if c.Destination.URL == "" {
		return errors.New("required flag `-u, --dest-url' or environment variable `BIKETRACK_DEST_URL` was not specified")
	}

	u, err := url.Parse(c.Destination.URL)
	if err != nil {
		return fmt.Errorf("invalid destination url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid destination url scheme %q", u.Scheme)
	}

	if c.Destination.APIKey == "" {
		return errors.New("required flag `-k, --dest-api-key' or environment variable `BIKETRACK_DEST_API_KEY` was not specified")
	}

	if c.Server.MaxBodySize <= 0 {
		return fmt.Errorf("max body size must be positive, got %d", c.Server.MaxBodySize)
	}

	if c.Destination.Timeout < 0 {
		return fmt.Errorf("destination timeout must not be negative, got %s", c.Destination.Timeout)
	}

	return nil
}
