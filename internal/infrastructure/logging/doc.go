// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output, debug level
//
// Sketch console calls are echoed to the "sandbox.sketch" logger at debug
// level, so they are visible only in development mode or with
// LOG_LEVEL=debug.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	host := sandbox.NewHost(store, cfg, sandbox.WithLogger(logger.Component("sandbox")))
package logging
