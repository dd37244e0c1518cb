// Package http provides the REST surface of the playground.
//
// Endpoints:
//   - GET  /, /health: service identity and liveness
//   - GET  /api/metrics: JSON metrics summary
//   - GET  /api/playground: snapshot, editor theme and context status
//   - PUT  /api/playground/code, /error, /theme: editor state
//   - POST /api/playground/run, /stop, /reset: run control
//   - DELETE /api/playground/output: clear the console
//   - PUT  /api/playground/handoff, POST /api/playground/handoff/claim:
//     one-shot code handoff from book pages
package http
