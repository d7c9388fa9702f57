// Package middleware provides the HTTP middleware wrapped around the
// proxy's public handler.
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Recovery: turns handler panics into 500 responses
//   - Logging: one structured log line per request
//   - RateLimit: per-client limits backed by internal/ratelimit
//   - BodyLimit: caps inbound body size
//
// Middleware functions follow the standard Go pattern and compose with
// Chain:
//
//	handler := middleware.Chain(
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)(mux)
package middleware
