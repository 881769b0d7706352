package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/interviewkit/chatcore/internal/backend"
)

// streamBufferSize is the frame channel buffer; matches the session
// manager's consumption pace for a human-facing chat.
const streamBufferSize = 16

// readChunkSize is the transport read size. Chunks are fed to the frame
// parser as-is; the parser owns record-boundary reassembly.
const readChunkSize = 4096

// Stream implements backend.Backend. It opens the chunked exchange endpoint
// and returns a channel of parsed frames. Connection and HTTP-status errors
// are returned directly; transport failures mid-stream arrive as a final
// frame with Err set. The channel closes when the stream ends; a close
// without a done frame means the transport ended prematurely.
func (c *Client) Stream(ctx context.Context, interviewID, content string) (<-chan backend.StreamFrame, error) {
	ctx, span := c.startSpan(ctx, "Stream", interviewID)

	resp, err := c.doRequest(ctx, http.MethodPost, c.endpoint(interviewID, "chat/stream"), chatRequest{Message: content})
	if err != nil {
		spanErr(span, err)
		span.End()
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := handleErrorResponse(resp)
		_ = resp.Body.Close() //nolint:errcheck // best-effort close
		spanErr(span, err)
		span.End()
		return nil, err
	}

	ch := make(chan backend.StreamFrame, streamBufferSize)

	go func() {
		defer close(ch)
		defer span.End()
		defer func() { _ = resp.Body.Close() }() //nolint:errcheck // best-effort close

		c.consumeStream(ctx, resp.Body, ch, span)
	}()

	return ch, nil
}

// consumeStream reads the response body chunk by chunk, feeds the frame
// parser, and forwards complete frames in arrival order. It returns after a
// done or error frame, on transport close, or on context cancellation.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, ch chan<- backend.StreamFrame, span trace.Span) {
	parser := NewFrameParser(c.logger)
	buf := make([]byte, readChunkSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range parser.Feed(string(buf[:n])) {
				if !emit(ctx, ch, frame) {
					return
				}
				// done and error are terminal; stop reading immediately.
				if frame.Type == backend.FrameDone || frame.Type == backend.FrameError {
					return
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				// Clean transport close. Whether a done frame arrived is
				// the consumer's concern.
				if residual := parser.Residual(); residual != "" {
					c.logger.Warn("stream closed with incomplete record", "residual_len", len(residual))
				}
				return
			}
			if ctx.Err() != nil {
				emit(ctx, ch, backend.StreamFrame{Err: ctx.Err()})
				return
			}
			err := fmt.Errorf("%w: stream read error: %w", backend.ErrStreamAborted, readErr)
			spanErr(span, err)
			emit(ctx, ch, backend.StreamFrame{Err: err})
			return
		}
	}
}

// emit sends a frame to the channel, respecting context cancellation.
// It reports false when the context ended before the send completed.
func emit(ctx context.Context, ch chan<- backend.StreamFrame, frame backend.StreamFrame) bool {
	select {
	case ch <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
