// Package chat defines the data contract between the interview chat backend,
// the session manager, and any render layer sitting on top of it.
package chat

import "time"

// Role identifies the author of a chat message.
type Role string

// Role constants for chat messages.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single committed entry in an interview chat history.
// Once committed to a session's history it is never mutated.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	TokensUsed int       `json:"tokens_used,omitempty"`
}

// ExchangeResult is the outcome of one completed user/assistant exchange.
type ExchangeResult struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`

	// RemainingTokens is the balance reported by the backend after the
	// exchange. The client only reports this value, it never computes it.
	RemainingTokens int `json:"remaining_tokens"`
}

// TranscriptMatch is one hit from a transcript similarity search.
// Matches are read-only and session-scoped; they are never part of
// the message history.
type TranscriptMatch struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Score     float64 `json:"score"`
}
