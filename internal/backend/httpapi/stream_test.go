package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/interviewkit/chatcore/internal/backend"
)

// streamHandler writes each record followed by a flush, so the client sees
// realistic chunk boundaries.
func streamHandler(t *testing.T, records []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/iv-1/chat/stream" {
			t.Errorf("path = %s, want /chat/iv-1/chat/stream", r.URL.Path)
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer is not a flusher")
		}
		for _, record := range records {
			fmt.Fprintf(w, "data: %s\n\n", record)
			flusher.Flush()
		}
	}
}

func TestStream_TokenThenDone(t *testing.T) {
	server := httptest.NewServer(streamHandler(t, []string{
		`{"type":"token","content":"Sum"}`,
		`{"type":"token","content":"mary."}`,
		`{"type":"done","remaining_tokens":4700}`,
	}))
	defer server.Close()

	frames, err := newTestClient(t, server.URL).Stream(context.Background(), "iv-1", "Summarize the interview")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var content string
	var done *backend.StreamFrame
	for frame := range frames {
		if frame.Err != nil {
			t.Fatalf("unexpected frame error: %v", frame.Err)
		}
		switch frame.Type {
		case backend.FrameToken:
			content += frame.Delta
		case backend.FrameDone:
			f := frame
			done = &f
		}
	}

	if content != "Summary." {
		t.Errorf("content = %q, want %q", content, "Summary.")
	}
	if done == nil || done.RemainingTokens != 4700 {
		t.Errorf("done frame = %+v, want remaining 4700", done)
	}
}

func TestStream_PrematureClose(t *testing.T) {
	server := httptest.NewServer(streamHandler(t, []string{
		`{"type":"token","content":"Sum"}`,
		`{"type":"token","content":"mary."}`,
		// No done record; the handler returns and the body closes.
	}))
	defer server.Close()

	frames, err := newTestClient(t, server.URL).Stream(context.Background(), "iv-1", "Summarize")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var tokens int
	for frame := range frames {
		if frame.Err != nil {
			t.Fatalf("unexpected frame error: %v", frame.Err)
		}
		if frame.Type == backend.FrameDone {
			t.Fatal("unexpected done frame")
		}
		tokens++
	}
	if tokens != 2 {
		t.Errorf("got %d token frames, want 2", tokens)
	}
}

func TestStream_ErrorFrame(t *testing.T) {
	server := httptest.NewServer(streamHandler(t, []string{
		`{"type":"token","content":"par"}`,
		`{"type":"error","content":"model unavailable"}`,
	}))
	defer server.Close()

	frames, err := newTestClient(t, server.URL).Stream(context.Background(), "iv-1", "hi")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var last backend.StreamFrame
	for frame := range frames {
		last = frame
	}
	if last.Type != backend.FrameError || last.Delta != "model unavailable" {
		t.Errorf("last frame = %+v, want error frame", last)
	}
}

func TestStream_OpenFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "out of tokens", http.StatusPaymentRequired)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Stream(context.Background(), "iv-1", "hi")
	if !errors.Is(err, backend.ErrInsufficientCredits) {
		t.Errorf("err = %v, want ErrInsufficientCredits", err)
	}
}

func TestStream_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"a\"}\n\n")
		flusher.Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	frames, err := newTestClient(t, server.URL).Stream(ctx, "iv-1", "hi")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	// Consume the first token, then cancel mid-stream.
	<-frames
	cancel()

	for range frames {
	}
	// Reaching here means the channel closed after cancellation; the
	// transport goroutine did not hang.
}
