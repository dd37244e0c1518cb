// Package ws streams playground state to browser clients over WebSocket.
//
// Every connected client receives a snapshot message on connect and after
// each store change. Snapshots are latest-wins per client: a slow reader
// skips intermediate states but always sees the newest one.
//
// Message Types (Client → Server):
//   - run, stop, reset, clear_output: playground commands
//   - set_code: replace the editor source ({"code": "..."})
//   - set_theme: switch theme ({"theme": "light"|"dark"})
//   - set_error: set or clear the error line ({"error": "..."|null})
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - snapshot: full playground state plus context status
//   - run_started: run accepted, carries run_id
//   - pong: ping reply
//   - error: command rejected
//
// Example Usage:
//
//	handler := ws.NewHandler(host, metrics, logger)
//	router.GET("/api/playground/stream", handler.HandleConnection)
package ws
