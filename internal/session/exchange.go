package session

import (
	"context"
	"errors"
	"strings"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// Send performs one synchronous round-trip exchange. On success the user and
// assistant messages are appended to history in that order as a single
// atomic update and the remaining-token balance is replaced. On failure the
// history is untouched; quota exhaustion is distinguished via
// backend.ErrInsufficientCredits.
func (m *Manager) Send(ctx context.Context, content string) (chat.ExchangeResult, error) {
	if strings.TrimSpace(content) == "" {
		return chat.ExchangeResult{}, ErrEmptyMessage
	}

	epoch, err := m.begin(opSend)
	if err != nil {
		return chat.ExchangeResult{}, err
	}

	m.mu.Lock()
	interviewID := m.interviewID
	m.mu.Unlock()

	result, err := m.backend.Send(ctx, interviewID, content)

	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("send")
		return result, err
	}
	m.busyOp = opNone
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		m.metrics.Exchange(metrics.ModeSend, metrics.OutcomeError)
		if errors.Is(err, backend.ErrInsufficientCredits) {
			m.sink.Error("token budget exhausted", err)
		} else {
			m.sink.Error("sending message failed", err)
		}
		m.notifyChange()
		return chat.ExchangeResult{}, err
	}

	m.messages = append(m.messages, result.UserMessage, result.AssistantMessage)
	remaining := result.RemainingTokens
	m.remaining = &remaining
	m.lastErr = nil
	m.mu.Unlock()

	m.metrics.Exchange(metrics.ModeSend, metrics.OutcomeOK)
	m.metrics.RemainingTokens(remaining)
	m.notifyChange()
	return result, nil
}
