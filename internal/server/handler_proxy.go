package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/woozymasta/biketrack/internal/destination"
	"github.com/woozymasta/biketrack/internal/mapping"
	"github.com/woozymasta/biketrack/internal/models"
)

// errTrailingData is returned for bodies holding more than one JSON value.
var errTrailingData = errors.New("unexpected data after JSON object")

// handleProxy relays one compact record from a tracker to the destination store.
// The body is expanded with the mapping table and inserted with exactly one outbound call;
// the device gets {"success":true} or the upstream status with {"error":...}.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	ip := GetRealIP(r, s.trustProxy)
	logCtx := zerolog.Ctx(r.Context()).With().Str("ip", ip).Logger()

	// Max body limit size
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logCtx.Debug().Int64("limit", tooLarge.Limit).Msg("Body too large")
			respondJSON(w, http.StatusRequestEntityTooLarge, proxyResponse{Error: err.Error()})
			return
		}

		logCtx.Debug().Err(err).Msg("Failed to read body")
		respondJSON(w, http.StatusBadRequest, proxyResponse{Error: err.Error()})
		return
	}

	rec, err := decodeCompact(body)
	if err != nil {
		logCtx.Debug().Err(err).Msg("Invalid JSON")
		respondJSON(w, http.StatusBadRequest, proxyResponse{Error: err.Error()})
		return
	}

	out := mapping.Expand(rec, s.policy)

	logCtx = logCtx.With().
		Interface("device", out.DeviceID).
		Str("digest", strconv.FormatUint(xxhash.Sum64(body), 16)).
		Logger()
	if country := s.country(ip); country != "" {
		logCtx = logCtx.With().Str("country", country).Logger()
	}

	// Device disconnects must not abort an insert already in flight
	ctx := context.WithoutCancel(r.Context())

	if err := s.relay.Insert(ctx, out); err != nil {
		status := http.StatusInternalServerError
		message := err.Error()

		var failure *destination.OutboundFailure
		if errors.As(err, &failure) {
			status = failure.Status()
			message = failure.Message
			logCtx.Error().
				Err(err).
				Int("upstream_status", failure.StatusCode).
				Bytes("upstream_body", failure.Body).
				Msg("Relay to destination failed")
		} else {
			logCtx.Error().Err(err).Msg("Relay to destination failed")
		}

		respondJSON(w, status, proxyResponse{Error: message})
		return
	}

	logCtx.Debug().Msg("Telemetry relayed")
	respondJSON(w, http.StatusOK, proxyResponse{Success: true})
}

// country resolves the caller country, "" without a GeoIP database.
func (s *Server) country(ip string) string {
	if s.geoip == nil {
		return ""
	}

	return s.geoip.CountryCode(ip)
}

// decodeCompact parses a request body into a compact record.
// An empty body is an empty record; anything but a single JSON object is an error.
func decodeCompact(body []byte) (models.CompactRecord, error) {
	rec := models.CompactRecord{}
	if len(bytes.TrimSpace(body)) == 0 {
		return rec, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		// literal null
		return nil, errors.New("request body must be a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}

	return rec, nil
}
