package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LogConfig        `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	Playground PlaygroundConfig `yaml:"playground"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8000" yaml:"port"`
	Host               string        `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" yaml:"shutdown_timeout"`
	Compression        bool          `envconfig:"HTTP_COMPRESSION" default:"true" yaml:"compression"`
	CompressionMinSize int           `envconfig:"HTTP_COMPRESSION_MIN_SIZE" default:"1024" yaml:"compression_min_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// SandboxConfig holds execution context settings.
type SandboxConfig struct {
	FrameRate        float64 `envconfig:"SANDBOX_FRAME_RATE" default:"60" yaml:"frame_rate"`
	MaxFrames        int     `envconfig:"SANDBOX_MAX_FRAMES" default:"0" yaml:"max_frames"`
	MaxCallStackSize int     `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024" yaml:"max_call_stack"`
	InboxSize        int     `envconfig:"SANDBOX_INBOX_SIZE" default:"256" yaml:"inbox_size"`
}

// PlaygroundConfig holds store settings.
type PlaygroundConfig struct {
	OutputLimit int    `envconfig:"PLAYGROUND_OUTPUT_LIMIT" default:"1000" yaml:"output_limit"`
	Theme       string `envconfig:"PLAYGROUND_THEME" default:"dark" yaml:"theme"`
	HandoffPath string `envconfig:"PLAYGROUND_HANDOFF_PATH" yaml:"handoff_path"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML file over Default. Keys missing from the file
// keep their defaults; environment variables are not consulted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8000",
			Host:               "0.0.0.0",
			ShutdownTimeout:    10 * time.Second,
			Compression:        true,
			CompressionMinSize: 1024,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sandbox: SandboxConfig{
			FrameRate:        60,
			MaxCallStackSize: 1024,
			InboxSize:        256,
		},
		Playground: PlaygroundConfig{
			OutputLimit: 1000,
			Theme:       "dark",
		},
	}
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}
