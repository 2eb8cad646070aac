package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/woozymasta/biketrack/internal/destination"
	"github.com/woozymasta/biketrack/internal/mapping"
	"github.com/woozymasta/biketrack/internal/models"
	"github.com/woozymasta/biketrack/internal/server"
)

// store is a fake destination recording every insert it receives.
type store struct {
	status int
	reply  string

	mu      sync.Mutex
	bodies  []string
	headers []http.Header
}

func (s *store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.bodies = append(s.bodies, string(body))
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()

	if s.status == 0 {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(s.status)
	_, _ = io.WriteString(w, s.reply)
}

func (s *store) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.bodies...)
}

// relayFunc adapts a function to server.Relay.
type relayFunc func(ctx context.Context, rec models.ExpandedRecord) error

func (f relayFunc) Insert(ctx context.Context, rec models.ExpandedRecord) error {
	return f(ctx, rec)
}

type staticCountry string

func (c staticCountry) CountryCode(string) string { return string(c) }

func newRelay(t *testing.T, dst *store, opts server.Options) http.Handler {
	t.Helper()

	ts := httptest.NewServer(dst)
	t.Cleanup(ts.Close)

	opts.Relay = destination.New(destination.Options{URL: ts.URL + "/rest/v1/telemetry", APIKey: "key"})
	if opts.MaxBody == 0 {
		opts.MaxBody = 64 << 10
	}

	srv := server.New(opts)
	t.Cleanup(srv.Close)

	return srv.Handler()
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/proxy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestProxySuccess(t *testing.T) {
	dst := &store{}
	h := newRelay(t, dst, server.Options{GeoIP: staticCountry("FR")})

	resp := post(h, `{"id":"A7670E_001","sig":18,"src":"4G","lat":45.764043,"lng":4.835659,"tmp":0,"battery":90}`)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	require.JSONEq(t, `{"success":true}`, resp.Body.String())
	require.NotEmpty(t, resp.Header().Get(server.RequestIDHeader))

	bodies := dst.calls()
	require.Len(t, bodies, 1)
	require.JSONEq(t, `{
		"device_id": "A7670E_001",
		"signal_quality": 18,
		"data_source": "4G",
		"latitude": 45.764043,
		"longitude": 4.835659,
		"temp_valid": true,
		"temperature": 0
	}`, bodies[0])

	hdr := dst.headers[0]
	require.Equal(t, "key", hdr.Get("apikey"))
	require.Equal(t, "Bearer key", hdr.Get("Authorization"))
	require.Equal(t, "return=minimal", hdr.Get("Prefer"))
	require.Empty(t, hdr.Get(server.RequestIDHeader))
}

func TestProxyUpstreamError(t *testing.T) {
	dst := &store{status: http.StatusUnprocessableEntity, reply: `{"message":"bad field"}`}
	h := newRelay(t, dst, server.Options{})

	resp := post(h, `{"id":"A7670E_001"}`)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.JSONEq(t, `{"error":"bad field"}`, resp.Body.String())
	require.Len(t, dst.calls(), 1)
}

func TestProxyDestinationUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	srv := server.New(server.Options{
		Relay:   destination.New(destination.Options{URL: "http://" + addr, APIKey: "key"}),
		MaxBody: 1024,
	})

	resp := post(srv.Handler(), `{"id":"A7670E_001"}`)

	require.Equal(t, http.StatusInternalServerError, resp.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Contains(t, body["error"], addr)
}

func TestProxyEmptyPayloadStillForwarded(t *testing.T) {
	for _, payload := range []string{`{}`, ``, "  \n"} {
		dst := &store{}
		h := newRelay(t, dst, server.Options{})

		resp := post(h, payload)

		require.Equal(t, http.StatusOK, resp.Code, "payload %q", payload)
		require.Equal(t, []string{`{}`}, dst.calls(), "payload %q", payload)
	}
}

func TestProxyRejectsNonObjectBody(t *testing.T) {
	for _, payload := range []string{`{"id":`, `[1,2]`, `"text"`, `null`, `{"id":"a"} {"id":"b"}`} {
		dst := &store{}
		h := newRelay(t, dst, server.Options{})

		resp := post(h, payload)

		require.Equal(t, http.StatusBadRequest, resp.Code, "payload %q", payload)
		require.Contains(t, resp.Body.String(), `"error"`)
		require.Empty(t, dst.calls(), "payload %q", payload)
	}
}

func TestProxyBodyTooLarge(t *testing.T) {
	dst := &store{}
	h := newRelay(t, dst, server.Options{MaxBody: 16})

	resp := post(h, `{"id":"A7670E_001","src":"4G"}`)

	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	require.Empty(t, dst.calls())
}

func TestProxyMethodNotAllowed(t *testing.T) {
	h := newRelay(t, &store{}, server.Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProxyLegacyPolicy(t *testing.T) {
	dst := &store{}
	h := newRelay(t, dst, server.Options{Policy: mapping.Legacy})

	resp := post(h, `{"sig":0,"signal_quality":5,"ax":0}`)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []string{`{"signal_quality":5}`}, dst.calls())
}

func TestProxyOutboundContextIgnoresClientCancel(t *testing.T) {
	var got context.Context
	srv := server.New(server.Options{
		MaxBody: 1024,
		Relay: relayFunc(func(ctx context.Context, _ models.ExpandedRecord) error {
			got = ctx
			return nil
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/proxy", strings.NewReader(`{}`)).WithContext(ctx)
	cancel()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, got.Err())
}

func TestProxyUnexpectedRelayError(t *testing.T) {
	srv := server.New(server.Options{
		MaxBody: 1024,
		Relay: relayFunc(func(context.Context, models.ExpandedRecord) error {
			return errors.New("failed to encode record")
		}),
	})

	resp := post(srv.Handler(), `{"id":"x"}`)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.JSONEq(t, `{"error":"failed to encode record"}`, resp.Body.String())
}

func TestProxyRateLimit(t *testing.T) {
	dst := &store{}
	h := newRelay(t, dst, server.Options{RateCount: 2, RateWindow: time.Hour})

	require.Equal(t, http.StatusOK, post(h, `{}`).Code)
	require.Equal(t, http.StatusOK, post(h, `{}`).Code)
	require.Equal(t, http.StatusTooManyRequests, post(h, `{}`).Code)
	require.Len(t, dst.calls(), 2)
}

func TestRequestIDEchoed(t *testing.T) {
	h := newRelay(t, &store{}, server.Options{})

	req := httptest.NewRequest(http.MethodPost, "/proxy", strings.NewReader(`{}`))
	req.Header.Set(server.RequestIDHeader, "tracker-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "tracker-42", rec.Header().Get(server.RequestIDHeader))
}
