package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// Stream performs one token-streamed exchange. The user message is appended
// optimistically before the transport opens; the assistant reply accumulates
// in the ephemeral pending message and is committed on the done frame. If
// the transport closes before a done frame arrives, whatever partial content
// accumulated is committed on a best-effort basis and the remaining-token
// balance is left unchanged. All mutations are applied only while the epoch
// captured at call time is still current.
func (m *Manager) Stream(ctx context.Context, content string) (chat.ExchangeResult, error) {
	if strings.TrimSpace(content) == "" {
		return chat.ExchangeResult{}, ErrEmptyMessage
	}

	epoch, err := m.begin(opStream)
	if err != nil {
		return chat.ExchangeResult{}, err
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	userMsg := chat.Message{
		ID:        m.newID(),
		Role:      chat.RoleUser,
		Content:   content,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("stream")
		return chat.ExchangeResult{}, nil
	}
	interviewID := m.interviewID
	// Optimistic append: the backend does not acknowledge receipt separately
	// before the reply stream begins.
	m.messages = append(m.messages, userMsg)
	m.pending = &pendingReply{id: m.newID(), startedAt: m.now()}
	m.cancelStream = cancel
	m.mu.Unlock()
	m.notifyChange()

	frames, err := m.backend.Stream(sctx, interviewID, content)
	if err != nil {
		return chat.ExchangeResult{}, m.abortStream(epoch, err)
	}

	return m.consumeFrames(sctx, epoch, userMsg, frames)
}

// Cancel closes the transport of the in-flight stream, if any. The pending
// reply is discarded without committing partial content.
func (m *Manager) Cancel() {
	m.mu.Lock()
	cancel := m.cancelStream
	m.cancelStream = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// consumeFrames applies frames strictly in arrival order until a terminal
// frame or transport close.
func (m *Manager) consumeFrames(sctx context.Context, epoch uint64, userMsg chat.Message, frames <-chan backend.StreamFrame) (chat.ExchangeResult, error) {
	for frame := range frames {
		switch {
		case frame.Err != nil:
			drain(frames)
			if sctx.Err() != nil {
				return chat.ExchangeResult{}, m.cancelledStream(epoch)
			}
			return chat.ExchangeResult{}, m.abortStream(epoch, frame.Err)

		case frame.Type == backend.FrameToken:
			m.metrics.StreamFrame(string(backend.FrameToken))
			// Empty deltas leave the content unchanged; suppress the
			// redundant re-render.
			if frame.Delta == "" {
				continue
			}
			m.mu.Lock()
			if !m.current(epoch) {
				m.mu.Unlock()
				drain(frames)
				m.discardStale("stream")
				return chat.ExchangeResult{}, nil
			}
			if m.pending != nil {
				m.pending.content += frame.Delta
			}
			m.mu.Unlock()
			m.notifyChange()

		case frame.Type == backend.FrameDone:
			m.metrics.StreamFrame(string(backend.FrameDone))
			drain(frames)
			// A done frame already buffered when Cancel fired must not be
			// committed; cancellation discards the pending reply entirely.
			if sctx.Err() != nil {
				return chat.ExchangeResult{}, m.cancelledStream(epoch)
			}
			return m.commitStream(epoch, userMsg, frame.RemainingTokens)

		case frame.Type == backend.FrameError:
			m.metrics.StreamFrame(string(backend.FrameError))
			drain(frames)
			err := fmt.Errorf("%w: %s", backend.ErrStreamAborted, frame.Delta)
			return chat.ExchangeResult{}, m.abortStream(epoch, err)
		}
	}

	// Transport closed without a done frame.
	if sctx.Err() != nil {
		return chat.ExchangeResult{}, m.cancelledStream(epoch)
	}
	return m.truncatedStream(epoch, userMsg)
}

// commitStream promotes the pending reply to history and applies the new
// token balance.
func (m *Manager) commitStream(epoch uint64, userMsg chat.Message, remainingTokens int) (chat.ExchangeResult, error) {
	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("stream")
		return chat.ExchangeResult{}, nil
	}

	assistant := chat.Message{
		ID:        m.pending.id,
		Role:      chat.RoleAssistant,
		Content:   m.pending.content,
		CreatedAt: m.now(),
	}
	m.messages = append(m.messages, assistant)
	m.pending = nil
	remaining := remainingTokens
	m.remaining = &remaining
	m.busyOp = opNone
	m.cancelStream = nil
	m.lastErr = nil
	m.mu.Unlock()

	m.metrics.Exchange(metrics.ModeStream, metrics.OutcomeOK)
	m.metrics.RemainingTokens(remaining)
	m.notifyChange()

	return chat.ExchangeResult{
		UserMessage:      userMsg,
		AssistantMessage: assistant,
		RemainingTokens:  remaining,
	}, nil
}

// truncatedStream handles a premature transport close: accumulated partial
// content is committed rather than silently dropped, the token balance is
// left unchanged, and the condition is surfaced as non-fatal.
func (m *Manager) truncatedStream(epoch uint64, userMsg chat.Message) (chat.ExchangeResult, error) {
	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("stream")
		return chat.ExchangeResult{}, nil
	}

	result := chat.ExchangeResult{UserMessage: userMsg}
	if m.remaining != nil {
		result.RemainingTokens = *m.remaining
	}
	if m.pending != nil && m.pending.content != "" {
		assistant := chat.Message{
			ID:        m.pending.id,
			Role:      chat.RoleAssistant,
			Content:   m.pending.content,
			CreatedAt: m.now(),
		}
		m.messages = append(m.messages, assistant)
		result.AssistantMessage = assistant
	}
	m.pending = nil
	m.busyOp = opNone
	m.cancelStream = nil
	m.lastErr = backend.ErrStreamTruncated
	m.mu.Unlock()

	m.metrics.Exchange(metrics.ModeStream, metrics.OutcomeTruncated)
	m.sink.Info("stream ended unexpectedly; kept the partial reply")
	m.notifyChange()
	return result, nil
}

// cancelledStream handles an explicit Cancel: the pending reply is discarded
// without committing partial content and without a user-facing notification.
func (m *Manager) cancelledStream(epoch uint64) error {
	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("stream")
		return nil
	}
	m.pending = nil
	m.busyOp = opNone
	m.cancelStream = nil
	m.mu.Unlock()

	m.metrics.Exchange(metrics.ModeStream, metrics.OutcomeCanceled)
	m.notifyChange()
	return context.Canceled
}

// abortStream handles a failed stream open or a mid-stream error: the
// pending reply is discarded, nothing is committed, and the failure is
// surfaced.
func (m *Manager) abortStream(epoch uint64, err error) error {
	m.mu.Lock()
	if !m.current(epoch) {
		m.mu.Unlock()
		m.discardStale("stream")
		return err
	}
	m.pending = nil
	m.busyOp = opNone
	m.cancelStream = nil
	m.lastErr = err
	m.mu.Unlock()

	m.metrics.Exchange(metrics.ModeStream, metrics.OutcomeError)
	m.sink.Error("streamed exchange failed", err)
	m.notifyChange()
	return err
}

// drain empties the frame channel so the transport goroutine can exit.
func drain(frames <-chan backend.StreamFrame) {
	//nolint:revive // intentional empty drain loop
	for range frames {
	}
}
