/*
Package tracing provides lightweight request tracing for the playground API.

Each HTTP request gets a span with a ULID trace id (continued from an
incoming X-Trace-ID header when present). Finished spans are logged
through zap by a buffered collector; spans carrying an error are logged at
error level, the rest at debug.

# Usage

	tracer := tracing.New("playground", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

# Trace Format

  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current operation
*/
package tracing
