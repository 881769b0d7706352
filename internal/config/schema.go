// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for the ichat client.
package config

import (
	"time"

	"github.com/interviewkit/chatcore/internal/backend/httpapi"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Backend configures the interview chat service client.
	Backend httpapi.Config `yaml:"backend"`

	// Auth configures the bearer credential source.
	Auth AuthConfig `yaml:"auth"`

	// Log configures logging.
	Log LogConfig `yaml:"log,omitempty"`

	// Diag configures the optional loopback diagnostics server.
	Diag DiagConfig `yaml:"diag,omitempty"`

	// Telemetry configures optional OTLP trace export.
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// AuthConfig selects the credential source. Exactly one of Token or
// TokenFile must be set. A token file is re-read on every request, so an
// external refresher can rotate it.
type AuthConfig struct {
	Token     string `yaml:"token,omitempty"`
	TokenFile string `yaml:"token_file,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`
}

// DiagConfig configures the diagnostics HTTP server.
type DiagConfig struct {
	// Listen is the bind address (e.g. "127.0.0.1:9464"). Empty disables
	// the server.
	Listen string `yaml:"listen,omitempty"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port). Empty
	// disables tracing.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure,omitempty"`

	// Timeout bounds each export batch.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Telemetry.Timeout == 0 {
		c.Telemetry.Timeout = 10 * time.Second
	}
}
