package session

import "errors"

// Sentinel errors for session operations. These are local, synchronous
// rejections; backend failures carry the sentinels from internal/backend.
var (
	// ErrEmptyMessage rejects a whitespace-only message before any network
	// call is made.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy rejects a mutating operation while another one is in flight
	// for the same interview. Calls are rejected, not queued.
	ErrBusy = errors.New("another operation is in flight")

	// ErrClosed rejects any operation after the manager is closed.
	ErrClosed = errors.New("session closed")
)
