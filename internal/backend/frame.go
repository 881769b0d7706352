package backend

// FrameType discriminates the variant carried by a StreamFrame.
type FrameType string

// Frame types emitted by the streaming endpoint.
const (
	// FrameToken carries an incremental text delta of the assistant reply.
	FrameToken FrameType = "token"

	// FrameDone terminates a successful stream and carries the remaining
	// token balance.
	FrameDone FrameType = "done"

	// FrameError is a backend-signalled failure; no message is committed.
	FrameError FrameType = "error"
)

// StreamFrame is one parsed unit of the streaming wire protocol. Frames are
// transient: they are consumed in arrival order and never persisted.
type StreamFrame struct {
	Type FrameType

	// Delta is the text increment for FrameToken, or the error text for
	// FrameError.
	Delta string

	// RemainingTokens is set on FrameDone.
	RemainingTokens int

	// Err reports a transport-level failure. A frame with Err set is the
	// last frame delivered before the channel closes.
	Err error
}
