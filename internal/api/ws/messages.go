package ws

import (
	"github.com/unforced/nature-of-ai/internal/domain/playground"
	"github.com/unforced/nature-of-ai/internal/sandbox"
)

// Inbound command types.
const (
	TypeRun         = "run"
	TypeStop        = "stop"
	TypeReset       = "reset"
	TypeClearOutput = "clear_output"
	TypeSetCode     = "set_code"
	TypeSetTheme    = "set_theme"
	TypeSetError    = "set_error"
	TypePing        = "ping"
)

// Outbound message types.
const (
	TypeSnapshot   = "snapshot"
	TypeRunStarted = "run_started"
	TypePong       = "pong"
	TypeError      = "error"
)

// Command is a client->server message.
type Command struct {
	Type  string  `json:"type"`
	Code  *string `json:"code,omitempty"`
	Theme string  `json:"theme,omitempty"`
	Error *string `json:"error,omitempty"`
}

// SnapshotMessage pushes the playground state to a client.
type SnapshotMessage struct {
	Type string `json:"type"`
	playground.Snapshot
	Status sandbox.Status `json:"status"`
}

// Reply answers a command.
type Reply struct {
	Type    string `json:"type"`
	RunID   uint64 `json:"run_id,omitempty"`
	Message string `json:"message,omitempty"`
}
