// Package httpapi implements backend.Backend against the interview chat
// service's REST and chunked-streaming endpoints.
package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/interviewkit/chatcore/internal/backend"
)

// Config holds the configuration for the HTTP backend client.
type Config struct {
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseURL != "" {
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}
}

// validate returns an error if required fields are missing.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend.httpapi: base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.httpapi: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.httpapi: base_url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// Client is the HTTP implementation of backend.Backend.
type Client struct {
	config Config
	tokens backend.TokenProvider
	client *http.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// Compile-time interface check.
var _ backend.Backend = (*Client)(nil)

// New creates a Client for the given config and token provider.
func New(cfg Config, tokens backend.TokenProvider, logger *slog.Logger) (*Client, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("backend.httpapi: token provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: cfg,
		tokens: tokens,
		// Use a transport with response-header timeout instead of a global
		// client timeout. A global timeout kills long-running streams;
		// per-request context handles cancellation.
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
		logger: logger.With("component", "backend.httpapi"),
		tracer: otel.Tracer("github.com/interviewkit/chatcore/internal/backend/httpapi"),
	}, nil
}
