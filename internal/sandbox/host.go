package sandbox

import (
	"errors"
	"sync"
	"time"

	"github.com/unforced/nature-of-ai/internal/domain/playground"
	"go.uber.org/zap"
)

// Host owns the current execution context and is the only writer of the
// playground store. Controller commands and message deliveries are
// serialized on one mutex, so a message is checked against the current run
// id and applied atomically with respect to run, stop and reset.
//
// Store listeners are invoked while that mutex is held and must not call
// back into the Host.
type Host struct {
	store    *playground.Store
	cfg      Config
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex
	runID   uint64
	current *Context
	closed  bool

	inbox    chan Envelope
	quit     chan struct{}
	loopDone chan struct{}
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver registers an observer for lifecycle and delivery events.
func WithObserver(o Observer) Option {
	return func(h *Host) {
		if o != nil {
			h.observer = o
		}
	}
}

// NewHost creates a host bound to store and starts its dispatch loop.
func NewHost(store *playground.Store, cfg Config, opts ...Option) *Host {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig().InboxSize
	}
	h := &Host{
		store:    store,
		cfg:      cfg,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		inbox:    make(chan Envelope, cfg.InboxSize),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.dispatch()
	return h
}

func (h *Host) dispatch() {
	defer close(h.loopDone)
	for {
		select {
		case env := <-h.inbox:
			h.deliver(env)
		case <-h.quit:
			return
		}
	}
}

// deliver applies one frame if it belongs to the current run.
func (h *Host) deliver(env Envelope) {
	msg, decodeErr := Decode(env.Frame)
	kind := string(msg.Kind)
	if decodeErr != nil {
		kind = "unknown"
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil || env.RunID != h.runID {
		h.observer.FrameDelivered(kind, OutcomeStale)
		return
	}
	if decodeErr != nil {
		h.logger.Debug("ignoring frame", zap.Uint64("run_id", env.RunID), zap.Error(decodeErr))
		h.observer.FrameDelivered(kind, OutcomeIgnored)
		return
	}

	switch msg.Kind {
	case KindConsole:
		h.store.AppendOutput(msg.OutputLine())
	case KindError:
		h.store.SetError(msg.Text)
	}
	h.observer.FrameDelivered(kind, OutcomeApplied)
}

// Run discards any current context and starts a fresh one from the
// store's current code. It returns the new run id without waiting for the
// script to execute.
func (h *Host) Run() (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, ErrHostClosed
	}

	h.discardLocked(ReasonRerun)
	h.runID++
	id := h.runID
	h.store.RequestRun()

	if err := h.buildLocked(id, h.store.Code()); err != nil {
		h.logger.Error("failed to build context", zap.Uint64("run_id", id), zap.Error(err))
		h.store.SetError(err.Error())
		return id, nil
	}
	h.observer.RunStarted(id)
	h.logger.Debug("context started", zap.Uint64("run_id", id))
	return id, nil
}

func (h *Host) buildLocked(id uint64, code string) error {
	program, err := Render(code)
	if err != nil {
		return err
	}
	ctx, err := newContext(id, h.cfg, h.inbox, h.logger)
	if err != nil {
		return err
	}
	h.current = ctx
	ctx.start(program)
	return nil
}

// Stop discards the current context. Stopping while stopped changes
// nothing.
func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	h.discardLocked(ReasonStop)
	h.store.RequestStop()
	return nil
}

// Reset discards the current context and restores the store defaults.
func (h *Host) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	h.discardLocked(ReasonReset)
	h.store.Reset()
	return nil
}

// SetCode replaces the script text. A running context keeps executing
// the code it was built from.
func (h *Host) SetCode(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.SetCode(code)
}

// ClearOutput empties the output log.
func (h *Host) ClearOutput() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.ClearOutput()
}

// SetError overwrites the last error; nil clears it.
func (h *Host) SetError(message *string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if message == nil {
		h.store.ClearError()
		return
	}
	h.store.SetError(*message)
}

// SetTheme updates the display preference.
func (h *Host) SetTheme(theme playground.Theme) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.SetTheme(theme)
}

// Seed consumes a hand-off slot into the store.
func (h *Host) Seed(slot playground.Slot) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return playground.Seed(h.store, slot)
}

// Snapshot reads the store without taking the host lock.
func (h *Host) Snapshot() playground.Snapshot {
	return h.store.Snapshot()
}

// Subscribe registers a store listener.
func (h *Host) Subscribe(l playground.Listener) func() {
	return h.store.Subscribe(l)
}

// Status reports the current run id and context lifecycle.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Status{RunID: h.runID, Context: Idle}
	if h.current != nil {
		st.Context = h.current.Lifecycle()
		st.Frames = h.current.Frames()
	}
	return st
}

// Close discards the current context and stops the dispatch loop.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.discardLocked(ReasonClose)
	h.mu.Unlock()

	close(h.quit)
	<-h.loopDone
	return nil
}

func (h *Host) discardLocked(reason string) {
	if h.current == nil {
		return
	}
	ctx := h.current
	h.current = nil
	ctx.Discard()

	lifetime := time.Since(ctx.started)
	h.observer.ContextDiscarded(ctx.runID, reason, lifetime)
	h.logger.Debug("context discarded",
		zap.Uint64("run_id", ctx.runID),
		zap.String("reason", reason),
		zap.Duration("lifetime", lifetime))
}

// IsClosed reports whether err was caused by a closed host.
func IsClosed(err error) bool {
	return errors.Is(err, ErrHostClosed)
}
