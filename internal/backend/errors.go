package backend

import "errors"

// Sentinel errors for backend operations.
var (
	// ErrInsufficientCredits indicates the interview's token budget is
	// exhausted. Surfaced distinctly so the UI can offer a top-up action
	// instead of a generic retry.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAuthentication indicates the bearer credential was rejected.
	ErrAuthentication = errors.New("authentication failed")

	// ErrBackendDown indicates the chat service is temporarily unavailable.
	ErrBackendDown = errors.New("backend unavailable")

	// ErrStreamAborted indicates the stream erred before completion and no
	// assistant message was committed.
	ErrStreamAborted = errors.New("stream aborted")

	// ErrStreamTruncated indicates the transport closed before a done frame
	// arrived; accumulated partial content was committed on a best-effort
	// basis and the remaining-token balance is unchanged.
	ErrStreamTruncated = errors.New("stream ended unexpectedly")
)
