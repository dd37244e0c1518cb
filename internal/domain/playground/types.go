package playground

import (
	"errors"
	"fmt"
)

// ErrInvalidTheme is returned when a theme name is not recognised.
var ErrInvalidTheme = errors.New("invalid theme")

// RunState is the controller-visible run flag.
type RunState int

const (
	Stopped RunState = iota
	Running
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Theme is a display-only preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(name string) (Theme, error) {
	switch Theme(name) {
	case ThemeLight, ThemeDark:
		return Theme(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, name)
}

// EditorTheme maps the theme to the editor's colour scheme name.
func (t Theme) EditorTheme() string {
	if t == ThemeDark {
		return "vs-dark"
	}
	return "light"
}

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	Code      string   `json:"code"`
	IsRunning bool     `json:"isRunning"`
	Output    []string `json:"output"`
	Error     *string  `json:"error"`
	Theme     Theme    `json:"theme"`
	Dropped   uint64   `json:"dropped,omitempty"` // output lines evicted by the buffer limit
}

// Listener receives a snapshot after every mutation.
type Listener func(Snapshot)

// DefaultCode is the sketch the playground starts with and resets to.
const DefaultCode = `function setup() {
  createCanvas(400, 400);
}

function draw() {
  background(220);

  // Draw a circle that follows the mouse
  fill(100, 150, 250);
  noStroke();
  circle(mouseX, mouseY, 50);
}`

// DefaultOutputLimit bounds the output buffer unless overridden.
const DefaultOutputLimit = 1000
