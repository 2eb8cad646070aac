package server

import (
	"context"
	"time"

	"github.com/woozymasta/biketrack/internal/mapping"
	"github.com/woozymasta/biketrack/internal/models"
)

// Relay inserts an expanded record into the destination store.
// *destination.Client implements it.
type Relay interface {
	Insert(ctx context.Context, rec models.ExpandedRecord) error
}

// CountryResolver maps a caller IP to an ISO country code, "" when unknown.
// *geoip.Provider implements it.
type CountryResolver interface {
	CountryCode(ip string) string
}

// Server holds the dependencies and configuration required to relay device telemetry.
// Everything here is set once in New and only read by request handlers.
type Server struct {
	// relay is the outbound client for the destination store.
	relay Relay

	// geoip resolves caller countries for log lines. It can be nil.
	geoip CountryResolver

	// limiter is the per-IP rate limiter, nil when rate limiting is disabled.
	limiter *ipLimiter

	// maxBody specifies the maximum allowed size (in bytes) for incoming HTTP request bodies.
	maxBody int64

	// policy decides how short keys shadow their long aliases.
	policy mapping.Policy

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// Options carries the settings New needs from the application config.
type Options struct {
	Relay      Relay
	GeoIP      CountryResolver
	MaxBody    int64
	Policy     mapping.Policy
	TrustProxy bool

	// RateCount requests per RateWindow per IP; zero count disables limiting
	RateCount  int
	RateWindow time.Duration
}

// proxyResponse is the body returned to the device.
type proxyResponse struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}
