package session

import "github.com/interviewkit/chatcore/pkg/chat"

// Snapshot is a point-in-time copy of the session state. Render layers read
// snapshots; they never observe the manager's internals directly.
type Snapshot struct {
	InterviewID string
	Epoch       uint64
	Busy        bool
	Closed      bool

	// Messages is the committed history, strictly chronological.
	Messages []chat.Message

	// Pending is the partially streamed assistant reply, nil unless a
	// stream is active.
	Pending *chat.Message

	// RemainingTokens is the balance from the most recent applied exchange,
	// nil until one has completed.
	RemainingTokens *int

	LastErr error
}

// EntryKind discriminates the variant held by a TimelineEntry.
type EntryKind string

// Timeline entry kinds.
const (
	// EntryCommitted is an immutable history message.
	EntryCommitted EntryKind = "committed"

	// EntryPending is the in-progress streamed reply. At most one pending
	// entry exists, always last.
	EntryPending EntryKind = "pending"
)

// TimelineEntry is one renderable unit of the conversation. The explicit
// kind keeps renderers from conflating a partial streamed reply with
// committed history.
type TimelineEntry struct {
	Kind    EntryKind
	Message chat.Message
}

// Timeline returns the committed history followed by the pending reply,
// if any, as a single tagged sequence.
func (s Snapshot) Timeline() []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(s.Messages)+1)
	for _, msg := range s.Messages {
		entries = append(entries, TimelineEntry{Kind: EntryCommitted, Message: msg})
	}
	if s.Pending != nil {
		entries = append(entries, TimelineEntry{Kind: EntryPending, Message: *s.Pending})
	}
	return entries
}
