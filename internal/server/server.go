// Package server implements the HTTP relay endpoint, middleware, and health handler.
package server

import (
	"net/http"
)

// New creates a new Server instance from the provided options.
func New(opts Options) *Server {
	s := &Server{
		relay:      opts.Relay,
		geoip:      opts.GeoIP,
		maxBody:    opts.MaxBody,
		policy:     opts.Policy,
		trustProxy: opts.TrustProxy,
	}

	if opts.RateCount > 0 && opts.RateWindow > 0 {
		s.limiter = newIPLimiter(opts.RateCount, opts.RateWindow)
	}

	return s
}

// Close stops background routines of the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.stop()
	}
}

// Handler configures the HTTP routes and returns the main handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var proxy http.Handler = http.HandlerFunc(s.handleProxy)
	if s.limiter != nil {
		proxy = s.RateLimitMiddleware(proxy)
	}

	mux.Handle("POST /proxy", proxy)
	mux.Handle("GET /health", http.HandlerFunc(s.handleHealth))

	return s.RequestIDMiddleware(s.LoggingMiddleware(mux))
}
