package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.Compression)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Sandbox config
	assert.Equal(t, 60.0, cfg.Sandbox.FrameRate)
	assert.Zero(t, cfg.Sandbox.MaxFrames)
	assert.Equal(t, 1024, cfg.Sandbox.MaxCallStackSize)
	assert.Equal(t, 256, cfg.Sandbox.InboxSize)

	// Playground config
	assert.Equal(t, 1000, cfg.Playground.OutputLimit)
	assert.Equal(t, "dark", cfg.Playground.Theme)
	assert.Empty(t, cfg.Playground.HandoffPath)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"SHUTDOWN_TIMEOUT":        "3s",
		"HTTP_COMPRESSION":        "false",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_RPS":          "500",
		"RATE_LIMIT_BURST":        "1000",
		"RATE_LIMIT_ENABLED":      "false",
		"SANDBOX_FRAME_RATE":      "30",
		"SANDBOX_MAX_FRAMES":      "600",
		"PLAYGROUND_OUTPUT_LIMIT": "0",
		"PLAYGROUND_THEME":        "light",
		"PLAYGROUND_HANDOFF_PATH": "/tmp/handoff.js",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.Compression)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	assert.Equal(t, 30.0, cfg.Sandbox.FrameRate)
	assert.Equal(t, 600, cfg.Sandbox.MaxFrames)

	assert.Zero(t, cfg.Playground.OutputLimit)
	assert.Equal(t, "light", cfg.Playground.Theme)
	assert.Equal(t, "/tmp/handoff.js", cfg.Playground.HandoffPath)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SANDBOX_MAX_FRAMES", "many")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		dev       string
		wantLevel string
		wantDev   bool
	}{
		{name: "default values", wantLevel: "info"},
		{name: "debug level", level: "debug", wantLevel: "debug"},
		{name: "development mode", dev: "true", wantLevel: "info", wantDev: true},
		{name: "error level production", level: "error", dev: "false", wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.level != "" {
				t.Setenv("LOG_LEVEL", tt.level)
			}
			if tt.dev != "" {
				t.Setenv("LOG_DEV", tt.dev)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantLevel, cfg.Logging.Level)
			assert.Equal(t, tt.wantDev, cfg.Logging.Development)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playground.yaml")
	content := `
server:
  port: "9100"
sandbox:
  frame_rate: 24
  max_frames: 120
playground:
  theme: light
  output_limit: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, 24.0, cfg.Sandbox.FrameRate)
	assert.Equal(t, 120, cfg.Sandbox.MaxFrames)
	assert.Equal(t, 1024, cfg.Sandbox.MaxCallStackSize)
	assert.Equal(t, "light", cfg.Playground.Theme)
	assert.Equal(t, 50, cfg.Playground.OutputLimit)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
