package session

import (
	"context"
	"fmt"

	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// LoadHistory fetches the interview's message history. It runs at most once
// per identity: once loaded, further calls return immediately. A call made
// while a load is already in flight joins it and shares its result instead
// of issuing a duplicate network request. On failure the existing messages
// are left untouched.
func (m *Manager) LoadHistory(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.historyLoaded {
		m.mu.Unlock()
		return nil
	}
	switch m.busyOp {
	case opNone:
		m.busyOp = opLoad
	case opLoad:
		// Join the in-flight load via singleflight below.
	default:
		m.mu.Unlock()
		return ErrBusy
	}
	epoch := m.epoch
	interviewID := m.interviewID
	m.mu.Unlock()

	// The flight key carries the epoch so a load started before a rebind is
	// never joined by a call made after it. Joining across epochs would hand
	// the joiner the stale flight's discarded outcome and leave its freshly
	// claimed busy slot unreleased.
	key := fmt.Sprintf("%d:%s", epoch, interviewID)
	_, err, _ := m.loads.Do(key, func() (any, error) {
		return nil, m.loadHistory(ctx, interviewID, epoch)
	})
	return err
}

// InvalidateHistory allows the next LoadHistory call to hit the backend
// again for the current identity.
func (m *Manager) InvalidateHistory() {
	m.mu.Lock()
	m.historyLoaded = false
	m.mu.Unlock()
}

// loadHistory performs the actual fetch and epoch-guarded apply.
func (m *Manager) loadHistory(ctx context.Context, interviewID string, epoch uint64) error {
	msgs, err := m.backend.Messages(ctx, interviewID)

	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("history load")
		return nil
	}
	m.busyOp = opNone
	if err != nil {
		// Failure never clears messages already present.
		m.lastErr = err
		m.mu.Unlock()
		m.metrics.HistoryLoad(metrics.OutcomeError)
		m.sink.Error("loading chat history failed", err)
		m.notifyChange()
		return err
	}
	m.messages = make([]chat.Message, len(msgs))
	copy(m.messages, msgs)
	m.historyLoaded = true
	m.mu.Unlock()

	m.metrics.HistoryLoad(metrics.OutcomeOK)
	m.logger.Debug("chat history loaded", "interview", interviewID, "messages", len(msgs))
	m.notifyChange()
	return nil
}
