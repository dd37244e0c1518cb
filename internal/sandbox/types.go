package sandbox

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrHostClosed is returned by commands issued after Close.
	ErrHostClosed = errors.New("sandbox host is closed")
)

// Config defines sandbox configuration
type Config struct {
	FrameRate        float64 // draw() calls per second
	MaxFrames        int     // Frame budget per run, 0 for unlimited
	MaxCallStackSize int     // goja call stack limit
	InboxSize        int     // Buffered context->host frames
}

// DefaultConfig returns the configuration used by the playground.
func DefaultConfig() Config {
	return Config{
		FrameRate:        60,
		MaxFrames:        0,
		MaxCallStackSize: 1024,
		InboxSize:        256,
	}
}

// minFrameInterval caps the draw rate at 1000 frames per second.
const minFrameInterval = time.Millisecond

func (c Config) frameInterval() time.Duration {
	rate := c.FrameRate
	if rate <= 0 || math.IsNaN(rate) {
		rate = 60
	}
	interval := time.Duration(float64(time.Second) / rate)
	if interval < minFrameInterval {
		return minFrameInterval
	}
	return interval
}

// Lifecycle is the state of the execution context, distinct from the
// store's run flag.
type Lifecycle int32

const (
	Idle Lifecycle = iota
	Building
	Active
)

func (l Lifecycle) String() string {
	switch l {
	case Building:
		return "building"
	case Active:
		return "active"
	default:
		return "idle"
	}
}

// MarshalText renders the lifecycle by name.
func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a lifecycle name.
func (l *Lifecycle) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*l = Idle
	case "building":
		*l = Building
	case "active":
		*l = Active
	default:
		return fmt.Errorf("unknown lifecycle %q", text)
	}
	return nil
}

// Status describes the host's current context.
type Status struct {
	RunID   uint64    `json:"run_id"`
	Context Lifecycle `json:"context"`
	Frames  int64     `json:"frames"`
}

// Teardown reasons reported to observers and logs.
const (
	ReasonStop  = "stop"
	ReasonReset = "reset"
	ReasonRerun = "rerun"
	ReasonClose = "close"
)

// Delivery outcomes for decoded frames.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeIgnored = "ignored"
)

// Observer receives lifecycle and delivery events, typically to feed
// metrics.
type Observer interface {
	RunStarted(runID uint64)
	ContextDiscarded(runID uint64, reason string, lifetime time.Duration)
	FrameDelivered(kind, outcome string)
}

type nopObserver struct{}

func (nopObserver) RunStarted(uint64)                              {}
func (nopObserver) ContextDiscarded(uint64, string, time.Duration) {}
func (nopObserver) FrameDelivered(string, string)                  {}
