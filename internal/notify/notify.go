// Package notify defines the sink through which the session core surfaces
// user-visible signals to whatever render layer is attached.
package notify

import "log/slog"

// Sink receives user-visible error and success signals from the session
// core. Implementations must be safe for concurrent use.
type Sink interface {
	// Error surfaces a user-visible failure.
	Error(msg string, err error)

	// Info surfaces a non-fatal, user-visible condition.
	Info(msg string)
}

// LogSink writes notifications to a slog logger. It is the default sink
// when no render layer registers its own.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink on the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "notify")}
}

// Error implements Sink.
func (s *LogSink) Error(msg string, err error) {
	s.logger.Error(msg, "error", err)
}

// Info implements Sink.
func (s *LogSink) Info(msg string) {
	s.logger.Info(msg)
}

// Funcs adapts two functions into a Sink. Nil functions are no-ops.
type Funcs struct {
	OnError func(msg string, err error)
	OnInfo  func(msg string)
}

// Error implements Sink.
func (f Funcs) Error(msg string, err error) {
	if f.OnError != nil {
		f.OnError(msg, err)
	}
}

// Info implements Sink.
func (f Funcs) Info(msg string) {
	if f.OnInfo != nil {
		f.OnInfo(msg)
	}
}
