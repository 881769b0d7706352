// Package backend defines the interface to the interview chat service.
// Concrete implementations live in separate packages (e.g., backend/httpapi).
package backend

import (
	"context"

	"github.com/interviewkit/chatcore/pkg/chat"
)

// Backend is the interface for communicating with the interview chat service.
type Backend interface {
	// Messages returns the full ordered message history for an interview.
	Messages(ctx context.Context, interviewID string) ([]chat.Message, error)

	// Send performs a single round-trip exchange and returns both resulting
	// messages plus the remaining token balance.
	Send(ctx context.Context, interviewID, content string) (chat.ExchangeResult, error)

	// Stream opens a chunked exchange and returns a channel of frames.
	// Initial connection errors are returned directly. Mid-stream errors
	// are delivered via StreamFrame.Err, after which the channel closes.
	// A channel that closes without a Done frame means the transport ended
	// prematurely.
	Stream(ctx context.Context, interviewID, content string) (<-chan StreamFrame, error)

	// Search runs a transcript similarity query. Implementations return the
	// backend's matches in score order; limit caps the result count.
	Search(ctx context.Context, interviewID, query string, limit int) ([]chat.TranscriptMatch, error)
}

// TokenProvider supplies the bearer credential attached to every request.
// Refresh and 401 recovery are the provider's responsibility.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}
