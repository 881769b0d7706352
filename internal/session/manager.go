// Package session implements the interview-scoped chat session manager: it
// owns the message history, drives synchronous and streamed exchanges, and
// guards every asynchronous result with an epoch check so that results from a
// superseded interview can never mutate the session visible afterwards.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/internal/notify"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// operation identifies which mutating call currently holds the busy slot.
// At most one of history-load, send, and stream runs at a time per identity.
type operation int

const (
	opNone operation = iota
	opLoad
	opSend
	opStream
)

// pendingReply is the ephemeral assistant message accumulated during an
// active stream. It is either promoted to history or discarded; it never
// outlives the operation that created it.
type pendingReply struct {
	id        string
	content   string
	startedAt time.Time
}

// Manager owns one interview's chat session. All methods are safe for
// concurrent use; asynchronous completions are serialized through the
// manager's lock and validated against the epoch captured at call time.
type Manager struct {
	backend backend.Backend
	sink    notify.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	// onChange is invoked (outside the lock) after every observable state
	// change, so a render layer can re-read Snapshot.
	onChange func()

	// Overridable for tests.
	now   func() time.Time
	newID func() string

	loads singleflight.Group

	mu            sync.Mutex
	interviewID   string
	epoch         uint64
	closed        bool
	busyOp        operation
	messages      []chat.Message
	pending       *pendingReply
	remaining     *int
	lastErr       error
	historyLoaded bool
	searchCache   map[string][]chat.TranscriptMatch
	cancelStream  context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithSink sets the notification sink. Defaults to a slog-backed sink.
func WithSink(sink notify.Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches Prometheus collectors. Without it, metric calls
// are no-ops.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithOnChange registers a callback fired after every observable state
// change. The callback must not block; it runs on the mutating goroutine.
func WithOnChange(fn func()) Option {
	return func(m *Manager) { m.onChange = fn }
}

// New creates a Manager bound to the given interview.
func New(b backend.Backend, interviewID string, opts ...Option) *Manager {
	m := &Manager{
		backend:     b,
		interviewID: interviewID,
		now:         time.Now,
		newID:       uuid.NewString,
		searchCache: make(map[string][]chat.TranscriptMatch),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "session")
	if m.sink == nil {
		m.sink = notify.NewLogSink(m.logger)
	}
	return m
}

// Bind switches the manager to a new interview. The previous identity's
// state is cleared, its epoch is retired, and any in-flight stream for it is
// cancelled; late results from the old identity are discarded on arrival.
func (m *Manager) Bind(interviewID string) {
	m.mu.Lock()
	cancel := m.cancelStream
	m.cancelStream = nil
	m.interviewID = interviewID
	m.epoch++
	m.busyOp = opNone
	m.messages = nil
	m.pending = nil
	m.remaining = nil
	m.lastErr = nil
	m.historyLoaded = false
	m.searchCache = make(map[string][]chat.TranscriptMatch)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.notifyChange()
}

// Close tears the session down. No further result application is permitted;
// any in-flight stream is cancelled.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancelStream
	m.cancelStream = nil
	m.closed = true
	m.epoch++
	m.busyOp = opNone
	m.pending = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		InterviewID: m.interviewID,
		Epoch:       m.epoch,
		Busy:        m.busyOp != opNone,
		Closed:      m.closed,
		LastErr:     m.lastErr,
	}
	if len(m.messages) > 0 {
		snap.Messages = make([]chat.Message, len(m.messages))
		copy(snap.Messages, m.messages)
	}
	if m.pending != nil {
		snap.Pending = &chat.Message{
			ID:        m.pending.id,
			Role:      chat.RoleAssistant,
			Content:   m.pending.content,
			CreatedAt: m.pending.startedAt,
		}
	}
	if m.remaining != nil {
		v := *m.remaining
		snap.RemainingTokens = &v
	}
	return snap
}

// begin claims the busy slot for op and returns the epoch the operation
// belongs to. Mutating calls while busy are rejected, not queued.
func (m *Manager) begin(op operation) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.busyOp != opNone {
		return 0, ErrBusy
	}
	m.busyOp = op
	return m.epoch, nil
}

// current reports whether epoch still identifies the live session. Callers
// must hold the lock.
func (m *Manager) current(epoch uint64) bool {
	return !m.closed && m.epoch == epoch
}

// discardStale logs and counts a result dropped by the epoch check. The
// drop is silent: the user has already moved on, so no notification fires.
func (m *Manager) discardStale(op string) {
	m.logger.Debug("stale result discarded", "operation", op)
	m.metrics.StaleResult()
}

// notifyChange fires the render-layer change callback, if registered.
func (m *Manager) notifyChange() {
	if m.onChange != nil {
		m.onChange()
	}
}
