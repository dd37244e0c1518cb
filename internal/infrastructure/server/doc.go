// Package server assembles the playground HTTP server.
//
// NewServer wires the store, sandbox host, REST handlers, WebSocket stream
// and Prometheus endpoint behind the middleware chain:
//
//	Recovery → Tracing → Metrics → CORS → RateLimit → handlers
//
// Responses are gzip-compressed above a size threshold, except on the
// stream endpoint.
package server
