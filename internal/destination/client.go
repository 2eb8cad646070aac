// Package destination implements the REST client used to insert expanded telemetry
// rows into the destination store (a PostgREST style table endpoint).
package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/woozymasta/biketrack/internal/models"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	// HTTPClient overrides the default client, mostly for tests
	HTTPClient *http.Client

	// URL is the full table endpoint, e.g. https://xyz.supabase.co/rest/v1/telemetry
	URL string

	// APIKey is sent both as apikey and as a bearer token
	APIKey string

	// Timeout of a single insert, zero keeps the transport defaults
	Timeout time.Duration
}

// Client posts expanded records to the destination store.
// It is safe for concurrent use and holds no per-request state.
type Client struct {
	http   *http.Client
	url    string
	apiKey string
}

// New creates a destination client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:   hc,
		url:    opts.URL,
		apiKey: opts.APIKey,
	}
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.url
}

// Insert makes exactly one POST of the record. Any 2xx answer is a success,
// every other outcome is returned as *OutboundFailure.
func (c *Client) Insert(ctx context.Context, rec models.ExpandedRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return &OutboundFailure{Err: err, Message: err.Error()}
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.http.Do(req)
	if err != nil {
		return &OutboundFailure{Err: err, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return &OutboundFailure{
		StatusCode: resp.StatusCode,
		Body:       body,
		Message:    errorMessage(body, resp.StatusCode),
	}
}

// errorMessage extracts a readable reason from an upstream error body.
// PostgREST answers {"message","details","hint","code"}, gateways often {"error"}.
func errorMessage(body []byte, status int) string {
	var shape struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		if shape.Message != "" {
			return shape.Message
		}
		if shape.Error != "" {
			return shape.Error
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}

	if text := http.StatusText(status); text != "" {
		return text
	}

	return fmt.Sprintf("status %d", status)
}
