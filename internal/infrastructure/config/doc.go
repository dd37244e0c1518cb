// Package config loads server, logging, rate limit, sandbox and
// playground settings from environment variables (envconfig) or a YAML
// file (goccy/go-yaml).
package config
