package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownKind    = errors.New("unknown message kind")
)

// Kind identifies a context->host message.
type Kind string

const (
	KindConsole Kind = "console"
	KindError   Kind = "error"
)

// Message is a decoded context->host frame.
type Message struct {
	Kind   Kind
	Method string   // console only
	Args   []string // console only
	Text   string   // error only
	Line   int      // error only, 0 when unknown
	Column int      // error only, 0 when unknown
}

// wireFrame is the JSON shape posted by the instrumentation shim.
type wireFrame struct {
	Kind    string   `json:"kind"`
	Method  string   `json:"method"`
	Args    []string `json:"args"`
	Message *string  `json:"message"`
	Line    *int     `json:"line"`
	Column  *int     `json:"column"`
}

var consoleMethods = map[string]bool{
	"log":   true,
	"warn":  true,
	"error": true,
}

// Decode parses a frame. Frames that are not valid JSON, carry an unknown
// kind, or do not match their kind's shape are rejected.
func Decode(frame []byte) (Message, error) {
	var w wireFrame
	if err := sonic.Unmarshal(frame, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch Kind(w.Kind) {
	case KindConsole:
		if !consoleMethods[w.Method] || w.Args == nil {
			return Message{}, fmt.Errorf("%w: console frame needs method and args", ErrMalformedFrame)
		}
		return Message{Kind: KindConsole, Method: w.Method, Args: w.Args}, nil
	case KindError:
		if w.Message == nil {
			return Message{}, fmt.Errorf("%w: error frame needs message", ErrMalformedFrame)
		}
		msg := Message{Kind: KindError, Text: *w.Message}
		if w.Line != nil {
			msg.Line = *w.Line
		}
		if w.Column != nil {
			msg.Column = *w.Column
		}
		return msg, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, w.Kind)
	}
}

// FormatConsole renders a console message as an output line.
func FormatConsole(method string, args []string) string {
	return "[" + method + "] " + strings.Join(args, " ")
}

// OutputLine renders a console message as an output line.
func (m Message) OutputLine() string {
	return FormatConsole(m.Method, m.Args)
}

// Envelope is a frame stamped with the run that produced it.
type Envelope struct {
	RunID uint64
	Frame []byte
}

// Channel is the posting end handed to one context. Every frame it
// carries is stamped with that context's run id. Once the context is
// discarded, posts are dropped.
type Channel struct {
	runID uint64
	inbox chan<- Envelope
	done  <-chan struct{}
}

func newChannel(runID uint64, inbox chan<- Envelope, done <-chan struct{}) *Channel {
	return &Channel{runID: runID, inbox: inbox, done: done}
}

// Post delivers a frame to the host. It blocks while the inbox is full
// and reports false when the context has been discarded.
func (c *Channel) Post(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.inbox <- Envelope{RunID: c.runID, Frame: frame}:
		return true
	case <-c.done:
		return false
	}
}
