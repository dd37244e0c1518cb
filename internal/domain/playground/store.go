package playground

import (
	"sort"
	"sync"
)

// Store is the execution state holder.
type Store struct {
	mu          sync.RWMutex
	code        string
	state       RunState
	output      *lineBuffer
	lastErr     *string
	theme       Theme
	defaultCode string

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultCode overrides the sketch used at startup and on reset.
func WithDefaultCode(code string) Option {
	return func(s *Store) {
		s.defaultCode = code
	}
}

// WithOutputLimit bounds the number of retained output lines; 0 keeps all.
func WithOutputLimit(limit int) Option {
	return func(s *Store) {
		s.output = newLineBuffer(limit)
	}
}

// WithTheme sets the initial theme.
func WithTheme(theme Theme) Option {
	return func(s *Store) {
		s.theme = theme
	}
}

// NewStore creates a store in its initial state.
func NewStore(opts ...Option) *Store {
	s := &Store{
		defaultCode: DefaultCode,
		output:      newLineBuffer(DefaultOutputLimit),
		theme:       ThemeDark,
		listeners:   make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.code = s.defaultCode
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Code:      s.code,
		IsRunning: s.state == Running,
		Output:    s.output.slice(),
		Theme:     s.theme,
		Dropped:   s.output.dropped,
	}
	if s.lastErr != nil {
		msg := *s.lastErr
		snap.Error = &msg
	}
	return snap
}

// State returns the current run state.
func (s *Store) State() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Code returns the current script text.
func (s *Store) Code() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code
}

// SetCode replaces the script text. Any string is accepted.
func (s *Store) SetCode(code string) {
	s.mutate(func() bool {
		s.code = code
		return true
	})
}

// RequestRun marks the store running and clears output and error.
// It always notifies, even when already running, since each call starts
// a new run.
func (s *Store) RequestRun() {
	s.mutate(func() bool {
		s.state = Running
		s.output.reset()
		s.lastErr = nil
		return true
	})
}

// RequestStop marks the store stopped. It reports whether anything
// changed; stopping a stopped store is a silent no-op.
func (s *Store) RequestStop() bool {
	return s.mutate(func() bool {
		if s.state == Stopped {
			return false
		}
		s.state = Stopped
		return true
	})
}

// AppendOutput appends one console line.
func (s *Store) AppendOutput(line string) {
	s.mutate(func() bool {
		s.output.append(line)
		return true
	})
}

// ClearOutput empties the output, leaving error and code untouched.
func (s *Store) ClearOutput() {
	s.mutate(func() bool {
		s.output.reset()
		return true
	})
}

// SetError overwrites the last error.
func (s *Store) SetError(message string) {
	s.mutate(func() bool {
		s.lastErr = &message
		return true
	})
}

// ClearError removes the last error.
func (s *Store) ClearError() {
	s.mutate(func() bool {
		if s.lastErr == nil {
			return false
		}
		s.lastErr = nil
		return true
	})
}

// SetTheme changes the display theme.
func (s *Store) SetTheme(theme Theme) {
	s.mutate(func() bool {
		if s.theme == theme {
			return false
		}
		s.theme = theme
		return true
	})
}

// Reset restores code, run state, output and error to their initial values.
// The theme is preserved.
func (s *Store) Reset() {
	s.mutate(func() bool {
		s.code = s.defaultCode
		s.state = Stopped
		s.output.reset()
		s.lastErr = nil
		return true
	})
}

// Subscribe registers a listener called with the new snapshot after
// every mutation. The returned func removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// mutate applies fn under the write lock and notifies listeners outside
// of it when fn reports a change.
func (s *Store) mutate(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	notify := changed && s.hasListeners()
	var snap Snapshot
	if notify {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if notify {
		s.notify(snap)
	}
	return changed
}

func (s *Store) hasListeners() bool {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	return len(s.listeners) > 0
}

func (s *Store) notify(snap Snapshot) {
	s.listenersMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}
