// Package diag provides a loopback HTTP server for health, session status,
// and Prometheus metrics. It is observational only; nothing here mutates the
// session.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server serves the diagnostics endpoints.
type Server struct {
	addr    string
	manager *session.Manager
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a diagnostics server bound to addr.
func New(addr string, manager *session.Manager, mx *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		manager: manager,
		metrics: mx,
		logger:  logger.With("component", "diag"),
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diag server failed", "error", err)
		}
	}()

	s.logger.Info("diag server listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// router constructs the chi mux with all routes wired.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth())
	r.Get("/status", s.handleStatus())
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return r
}

// handleHealth reports liveness.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// statusJSON is a serializable session snapshot.
type statusJSON struct {
	InterviewID     string `json:"interview_id"`
	Epoch           uint64 `json:"epoch"`
	Busy            bool   `json:"busy"`
	Messages        int    `json:"messages"`
	Streaming       bool   `json:"streaming"`
	RemainingTokens *int   `json:"remaining_tokens,omitempty"`
	LastError       string `json:"last_error,omitempty"`
}

// handleStatus returns the current session snapshot as JSON.
func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := statusJSON{}
		if s.manager != nil {
			snap := s.manager.Snapshot()
			status = statusJSON{
				InterviewID:     snap.InterviewID,
				Epoch:           snap.Epoch,
				Busy:            snap.Busy,
				Messages:        len(snap.Messages),
				Streaming:       snap.Pending != nil,
				RemainingTokens: snap.RemainingTokens,
			}
			if snap.LastErr != nil {
				status.LastError = snap.LastErr.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}
}
