// Package main is the entry point for the Nature of AI playground server.
//
// The server hosts the interactive sketch playground: it owns the editor
// state, runs sketches in sandboxed JavaScript contexts and streams
// console output and errors back to the browser.
//
// The server provides:
//   - REST API for playground commands
//   - WebSocket streaming of playground snapshots
//   - Prometheus metrics and a JSON summary
//   - Rate limiting, CORS and request tracing
//
// Configuration:
//   - Environment variables (12-factor)
//   - A YAML file via -config, replacing the environment
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
//	# From a config file
//	./server -config playground.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
