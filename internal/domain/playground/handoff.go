package playground

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Slot is a one-shot buffer that hands script text to the playground.
// Take returns the stored code and clears the slot.
type Slot interface {
	Take() (code string, ok bool, err error)
}

// MemorySlot is an in-process slot, filled by a chapter code block's
// "run in playground" action.
type MemorySlot struct {
	mu   sync.Mutex
	code string
	set  bool
}

// Put stores code, replacing anything not yet taken.
func (m *MemorySlot) Put(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code = code
	m.set = true
}

// Take returns and clears the stored code.
func (m *MemorySlot) Take() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", false, nil
	}
	code := m.code
	m.code = ""
	m.set = false
	return code, true, nil
}

// FileSlot reads code from a file and removes it once consumed.
type FileSlot struct {
	Path string
}

// Take reads the file and deletes it. A missing file is an empty slot.
func (f FileSlot) Take() (string, bool, error) {
	if f.Path == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read handoff file: %w", err)
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("failed to clear handoff file: %w", err)
	}
	return string(data), true, nil
}

// Seed consumes slot and, when it held non-empty code, installs it as the
// current script. It reports whether the script was replaced.
func Seed(store *Store, slot Slot) (bool, error) {
	code, ok, err := slot.Take()
	if err != nil {
		return false, err
	}
	if !ok || code == "" {
		return false, nil
	}
	store.SetCode(code)
	return true, nil
}
