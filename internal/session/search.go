package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// defaultSearchLimit caps transcript search results when the caller passes
// a non-positive limit.
const defaultSearchLimit = 5

// Search runs a best-effort transcript similarity query. It never returns an
// error and never touches the session's last error: backend failure yields an
// empty result and a log line. Results are cached for the life of the
// identity; the cache is independent of the busy arbitration used by the
// mutating operations.
func (m *Manager) Search(ctx context.Context, query string, limit int) []chat.TranscriptMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return []chat.TranscriptMatch{}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	key := fmt.Sprintf("%d:%s", limit, query)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return []chat.TranscriptMatch{}
	}
	if cached, ok := m.searchCache[key]; ok {
		m.mu.Unlock()
		result := make([]chat.TranscriptMatch, len(cached))
		copy(result, cached)
		return result
	}
	epoch := m.epoch
	interviewID := m.interviewID
	m.mu.Unlock()

	matches, err := m.backend.Search(ctx, interviewID, query, limit)
	if err != nil {
		m.metrics.Search(metrics.OutcomeError)
		m.logger.Warn("transcript search failed", "query", query, "error", err)
		return []chat.TranscriptMatch{}
	}
	if matches == nil {
		matches = []chat.TranscriptMatch{}
	}

	m.mu.Lock()
	if m.current(epoch) {
		cached := make([]chat.TranscriptMatch, len(matches))
		copy(cached, matches)
		m.searchCache[key] = cached
	}
	m.mu.Unlock()

	m.metrics.Search(metrics.OutcomeOK)
	return matches
}
