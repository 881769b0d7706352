package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// Validate checks the structural validity of a Config: version, required
// backend fields, a usable credential source, and well-formed listen
// addresses. All problems are reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("config: backend.base_url is required"))
	}

	switch {
	case cfg.Auth.Token == "" && cfg.Auth.TokenFile == "":
		errs = append(errs, errors.New("config: one of auth.token or auth.token_file is required"))
	case cfg.Auth.Token != "" && cfg.Auth.TokenFile != "":
		errs = append(errs, errors.New("config: auth.token and auth.token_file are mutually exclusive"))
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if cfg.Diag.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Diag.Listen); err != nil {
			errs = append(errs, fmt.Errorf("config: diag.listen %q is not host:port: %w", cfg.Diag.Listen, err))
		}
	}

	return errors.Join(errs...)
}

// ParseLevel converts a config log level string to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", level)
	}
}
