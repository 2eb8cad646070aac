// main is the entry point of the BikeTrack relay.
// It initializes the configuration, logger, optional GeoIP provider, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/biketrack/internal/config"
	"github.com/woozymasta/biketrack/internal/destination"
	"github.com/woozymasta/biketrack/internal/fake"
	"github.com/woozymasta/biketrack/internal/geoip"
	"github.com/woozymasta/biketrack/internal/logger"
	"github.com/woozymasta/biketrack/internal/server"
	"github.com/woozymasta/biketrack/internal/vars"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Str("version", vars.Version).Msg("Starting BikeTrack relay...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay := destination.New(destination.Options{
		URL:     cfg.Destination.URL,
		APIKey:  cfg.Destination.APIKey,
		Timeout: cfg.Destination.Timeout,
	})

	// Smoke run against the destination
	if cfg.GenerateCount > 0 {
		failed := fake.Send(ctx, relay, cfg.Destination.Policy(), cfg.GenerateCount)
		log.Info().Int("sent", cfg.GenerateCount-failed).Int("failed", failed).Msg("Fake data run finished")
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	geo := openGeoIP(ctx, cfg.GeoIP)
	defer func() {
		if err := geo.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GeoIP provider")
		}
	}()

	srvHandler := server.New(server.Options{
		Relay:      relay,
		GeoIP:      geo,
		MaxBody:    cfg.Server.MaxBodySize,
		Policy:     cfg.Destination.Policy(),
		TrustProxy: cfg.Server.TrustProxy,
		RateCount:  cfg.RateLimit.Count,
		RateWindow: cfg.RateLimit.Window,
	})
	defer srvHandler.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srvHandler.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Str("endpoint", "POST /proxy").
			Str("destination", destinationHost(cfg.Destination.URL)).
			Str("policy", cfg.Destination.Policy().String()).
			Msg("Relay ready to receive device telemetry")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openGeoIP refreshes and opens the country database; it returns nil when disabled or broken.
func openGeoIP(ctx context.Context, cfg config.GeoIP) *geoip.Provider {
	if cfg.Path == "" {
		return nil
	}

	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	provider, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}

// destinationHost hides the path and credentials of the destination URL in logs.
func destinationHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Host
}
