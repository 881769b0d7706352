// Package metrics exposes Prometheus collectors for the chat session core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Exchange modes and outcomes used as label values.
const (
	ModeSend   = "send"
	ModeStream = "stream"

	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeTruncated = "truncated"
	OutcomeCanceled  = "canceled"
)

// Metrics holds all collectors for one session manager process.
type Metrics struct {
	registry *prometheus.Registry

	exchangesTotal    *prometheus.CounterVec
	streamFramesTotal *prometheus.CounterVec
	historyLoadsTotal *prometheus.CounterVec
	searchesTotal     *prometheus.CounterVec
	staleResultsTotal prometheus.Counter
	remainingTokens   prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "exchanges_total",
			Help:      "Completed chat exchanges by mode and outcome.",
		}, []string{"mode", "outcome"}),
		streamFramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "stream_frames_total",
			Help:      "Stream frames applied by frame type.",
		}, []string{"type"}),
		historyLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "history_loads_total",
			Help:      "History loads by outcome.",
		}, []string{"outcome"}),
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "transcript_searches_total",
			Help:      "Transcript searches by outcome.",
		}, []string{"outcome"}),
		staleResultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "stale_results_discarded_total",
			Help:      "Async results dropped because their epoch was superseded.",
		}),
		remainingTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatcore",
			Name:      "remaining_tokens",
			Help:      "Token balance reported by the most recent applied exchange.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.exchangesTotal,
		m.streamFramesTotal,
		m.historyLoadsTotal,
		m.searchesTotal,
		m.staleResultsTotal,
		m.remainingTokens,
	)
	return m
}

// Registry returns the registry holding every collector, for serving.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// All observer methods are nil-safe so the session manager can run without
// metrics wired.

// Exchange records one completed exchange.
func (m *Metrics) Exchange(mode, outcome string) {
	if m == nil {
		return
	}
	m.exchangesTotal.WithLabelValues(mode, outcome).Inc()
}

// StreamFrame records one applied stream frame.
func (m *Metrics) StreamFrame(frameType string) {
	if m == nil {
		return
	}
	m.streamFramesTotal.WithLabelValues(frameType).Inc()
}

// HistoryLoad records one history load attempt.
func (m *Metrics) HistoryLoad(outcome string) {
	if m == nil {
		return
	}
	m.historyLoadsTotal.WithLabelValues(outcome).Inc()
}

// Search records one transcript search.
func (m *Metrics) Search(outcome string) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
}

// StaleResult records one silently discarded stale result.
func (m *Metrics) StaleResult() {
	if m == nil {
		return
	}
	m.staleResultsTotal.Inc()
}

// RemainingTokens records the latest applied token balance.
func (m *Metrics) RemainingTokens(n int) {
	if m == nil {
		return
	}
	m.remainingTokens.Set(float64(n))
}
