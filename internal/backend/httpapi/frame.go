package httpapi

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/interviewkit/chatcore/internal/backend"
)

// recordMarker prefixes every record on the streaming wire. Records are
// separated by a blank line.
const recordMarker = "data:"

// wireFrame is the JSON payload of a single stream record.
type wireFrame struct {
	Type            string `json:"type"`
	Content         string `json:"content,omitempty"`
	RemainingTokens int    `json:"remaining_tokens,omitempty"`
}

// FrameParser turns a raw incremental text stream into protocol frames.
// Network chunks do not respect record boundaries, so any trailing incomplete
// fragment is carried in a residual buffer between Feed calls. The parser
// performs no I/O; it is driven entirely by Feed.
type FrameParser struct {
	buf    string
	logger *slog.Logger
}

// NewFrameParser creates a parser with an empty residual buffer.
func NewFrameParser(logger *slog.Logger) *FrameParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameParser{logger: logger}
}

// Feed appends chunk to the residual buffer and returns every frame whose
// record is now complete, in wire order. A record that fails to parse is
// logged and dropped; it never aborts the stream.
func (p *FrameParser) Feed(chunk string) []backend.StreamFrame {
	p.buf += chunk

	var frames []backend.StreamFrame
	for {
		record, rest, ok := splitRecord(p.buf)
		if !ok {
			break
		}
		p.buf = rest

		frame, ok := p.parseRecord(record)
		if ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// splitRecord cuts the buffer at the first blank-line separator, accepting
// both LF and CRLF line endings.
func splitRecord(buf string) (record, rest string, ok bool) {
	lf := strings.Index(buf, "\n\n")
	crlf := strings.Index(buf, "\r\n\r\n")

	switch {
	case lf < 0 && crlf < 0:
		return "", "", false
	case crlf < 0 || (lf >= 0 && lf < crlf):
		return buf[:lf], buf[lf+2:], true
	default:
		return buf[:crlf], buf[crlf+4:], true
	}
}

// Residual returns the buffered fragment that has not yet formed a complete
// record. Useful for diagnostics after the transport closes.
func (p *FrameParser) Residual() string {
	return p.buf
}

// parseRecord strips the marker, parses the JSON payload, and classifies the
// frame by its type discriminator.
func (p *FrameParser) parseRecord(record string) (backend.StreamFrame, bool) {
	record = strings.Trim(record, "\r\n")
	if record == "" {
		return backend.StreamFrame{}, false
	}

	// Accept both "data: " (with space) and "data:" (without); some proxies
	// strip the space after the colon.
	if !strings.HasPrefix(record, recordMarker) {
		p.logger.Warn("stream record without marker dropped", "record", record)
		return backend.StreamFrame{}, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(record, recordMarker))

	var wf wireFrame
	if err := json.Unmarshal([]byte(payload), &wf); err != nil {
		p.logger.Warn("malformed stream record dropped", "error", err)
		return backend.StreamFrame{}, false
	}

	switch wf.Type {
	case "token":
		return backend.StreamFrame{Type: backend.FrameToken, Delta: wf.Content}, true
	case "done":
		return backend.StreamFrame{Type: backend.FrameDone, RemainingTokens: wf.RemainingTokens}, true
	case "error":
		return backend.StreamFrame{Type: backend.FrameError, Delta: wf.Content}, true
	default:
		p.logger.Warn("stream record with unknown type dropped", "type", wf.Type)
		return backend.StreamFrame{}, false
	}
}
