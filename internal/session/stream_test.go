package session

import (
	"context"
	"errors"
	"testing"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/pkg/chat"
)

func TestStream_CommitsConcatenatedTokens(t *testing.T) {
	fb := &fakeBackend{frames: []backend.StreamFrame{
		{Type: backend.FrameToken, Delta: "Sum"},
		{Type: backend.FrameToken, Delta: "mary."},
		{Type: backend.FrameDone, RemainingTokens: 4700},
	}}
	m := newTestManager(fb)

	result, err := m.Stream(context.Background(), "Summarize the interview")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if result.AssistantMessage.Content != "Summary." {
		t.Errorf("committed content = %q, want %q", result.AssistantMessage.Content, "Summary.")
	}
	if result.RemainingTokens != 4700 {
		t.Errorf("RemainingTokens = %d, want 4700", result.RemainingTokens)
	}

	snap := m.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("messages = %d, want user + assistant", len(snap.Messages))
	}
	if snap.Messages[0].Role != chat.RoleUser || snap.Messages[0].Content != "Summarize the interview" {
		t.Errorf("user message = %+v", snap.Messages[0])
	}
	if snap.Messages[1].Content != "Summary." {
		t.Errorf("assistant message = %+v", snap.Messages[1])
	}
	if snap.Pending != nil {
		t.Error("pending message left dangling after commit")
	}
	if snap.RemainingTokens == nil || *snap.RemainingTokens != 4700 {
		t.Errorf("snapshot RemainingTokens = %v, want 4700", snap.RemainingTokens)
	}
	if snap.Busy {
		t.Error("session still busy after stream")
	}
}

func TestStream_RejectsEmptyContent(t *testing.T) {
	m := newTestManager(&fakeBackend{})
	if _, err := m.Stream(context.Background(), "  \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
}

// A transport close without a done frame commits the accumulated partial
// content and leaves the token balance unchanged.
func TestStream_PrematureCloseCommitsPartial(t *testing.T) {
	fb := &fakeBackend{sendResult: chat.ExchangeResult{
		UserMessage:      chat.Message{ID: "u0", Role: chat.RoleUser},
		AssistantMessage: chat.Message{ID: "a0", Role: chat.RoleAssistant},
		RemainingTokens:  9000,
	}}
	sink := &recordingSink{}
	m := newTestManager(fb, WithSink(sink))

	// Establish a known balance first.
	if _, err := m.Send(context.Background(), "warmup"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	fb.frames = []backend.StreamFrame{
		{Type: backend.FrameToken, Delta: "Sum"},
		{Type: backend.FrameToken, Delta: "mary."},
		// Channel closes without a done frame.
	}
	result, err := m.Stream(context.Background(), "Summarize")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if result.AssistantMessage.Content != "Summary." {
		t.Errorf("committed content = %q, want partial %q", result.AssistantMessage.Content, "Summary.")
	}

	snap := m.Snapshot()
	if len(snap.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(snap.Messages))
	}
	if snap.Messages[3].Content != "Summary." {
		t.Errorf("last message = %+v, want best-effort commit", snap.Messages[3])
	}
	if snap.RemainingTokens == nil || *snap.RemainingTokens != 9000 {
		t.Errorf("RemainingTokens = %v, want unchanged 9000", snap.RemainingTokens)
	}
	if !errors.Is(snap.LastErr, backend.ErrStreamTruncated) {
		t.Errorf("LastErr = %v, want ErrStreamTruncated", snap.LastErr)
	}
	if _, infos := sink.counts(); infos != 1 {
		t.Errorf("sink infos = %d, want 1", infos)
	}
}

func TestStream_PrematureCloseWithoutContentCommitsNothing(t *testing.T) {
	fb := &fakeBackend{} // channel closes immediately
	m := newTestManager(fb)

	result, err := m.Stream(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if result.AssistantMessage.ID != "" {
		t.Errorf("assistant message = %+v, want none", result.AssistantMessage)
	}

	snap := m.Snapshot()
	// The optimistic user message stays; no empty assistant reply appears.
	if len(snap.Messages) != 1 || snap.Messages[0].Role != chat.RoleUser {
		t.Errorf("messages = %+v, want only the user message", snap.Messages)
	}
}

func TestStream_ErrorFrameDiscardsPending(t *testing.T) {
	fb := &fakeBackend{frames: []backend.StreamFrame{
		{Type: backend.FrameToken, Delta: "par"},
		{Type: backend.FrameError, Delta: "model unavailable"},
	}}
	sink := &recordingSink{}
	m := newTestManager(fb, WithSink(sink))

	_, err := m.Stream(context.Background(), "hi")
	if !errors.Is(err, backend.ErrStreamAborted) {
		t.Fatalf("err = %v, want ErrStreamAborted", err)
	}

	snap := m.Snapshot()
	if snap.Pending != nil {
		t.Error("pending message left dangling after abort")
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Role != chat.RoleUser {
		t.Errorf("messages = %+v, want only the optimistic user message", snap.Messages)
	}
	if errs, _ := sink.counts(); errs != 1 {
		t.Errorf("sink errors = %d, want 1", errs)
	}
	if snap.Busy {
		t.Error("session stuck busy after aborted stream")
	}
}

func TestStream_OpenFailureSurfacesError(t *testing.T) {
	fb := &fakeBackend{streamErr: backend.ErrInsufficientCredits}
	m := newTestManager(fb)

	_, err := m.Stream(context.Background(), "hi")
	if !errors.Is(err, backend.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	snap := m.Snapshot()
	if snap.Pending != nil {
		t.Error("pending message left dangling after open failure")
	}
	if snap.Busy {
		t.Error("session stuck busy after open failure")
	}
}

// Frames arriving after the identity changed must not mutate the new
// session's state.
func TestStream_StaleEpochDiscarded(t *testing.T) {
	frames := make(chan backend.StreamFrame)
	fb := &fakeBackend{streamFn: func(context.Context) (<-chan backend.StreamFrame, error) {
		return frames, nil
	}}
	m := newTestManager(fb)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Stream(context.Background(), "hi")
	}()

	frames <- backend.StreamFrame{Type: backend.FrameToken, Delta: "par"}
	m.Bind("iv-2")

	frames <- backend.StreamFrame{Type: backend.FrameToken, Delta: "tial"}
	frames <- backend.StreamFrame{Type: backend.FrameDone, RemainingTokens: 1}
	close(frames)
	<-done

	snap := m.Snapshot()
	if snap.InterviewID != "iv-2" {
		t.Fatalf("identity = %s", snap.InterviewID)
	}
	if len(snap.Messages) != 0 {
		t.Errorf("messages = %+v, want none under new identity", snap.Messages)
	}
	if snap.RemainingTokens != nil {
		t.Errorf("RemainingTokens = %v, want nil", snap.RemainingTokens)
	}
	if snap.Pending != nil {
		t.Error("pending message leaked across identities")
	}
}

func TestStream_CancelDiscardsPartial(t *testing.T) {
	fb := &fakeBackend{streamFn: func(ctx context.Context) (<-chan backend.StreamFrame, error) {
		ch := make(chan backend.StreamFrame, 1)
		ch <- backend.StreamFrame{Type: backend.FrameToken, Delta: "par"}
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch, nil
	}}
	m := newTestManager(fb)

	tokenSeen := make(chan struct{})
	var once bool
	m.onChange = func() {
		if !once && m.Snapshot().Pending != nil && m.Snapshot().Pending.Content != "" {
			once = true
			close(tokenSeen)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Stream(context.Background(), "hi")
		done <- err
	}()

	<-tokenSeen
	m.Cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	snap := m.Snapshot()
	if snap.Pending != nil {
		t.Error("pending message survived cancellation")
	}
	// Cancellation never commits partial assistant content.
	if len(snap.Messages) != 1 || snap.Messages[0].Role != chat.RoleUser {
		t.Errorf("messages = %+v, want only the user message", snap.Messages)
	}
	if snap.Busy {
		t.Error("session stuck busy after cancel")
	}
}

// A done frame that was already buffered in the channel when Cancel fired
// must be discarded like any other cancelled reply, not committed.
func TestStream_CancelBeforeBufferedDoneFrame(t *testing.T) {
	fb := &fakeBackend{}
	m := newTestManager(fb)
	fb.streamFn = func(context.Context) (<-chan backend.StreamFrame, error) {
		// The transport context is already registered at this point, so the
		// cancel lands before any frame is consumed.
		m.Cancel()
		ch := make(chan backend.StreamFrame, 2)
		ch <- backend.StreamFrame{Type: backend.FrameToken, Delta: "partial"}
		ch <- backend.StreamFrame{Type: backend.FrameDone, RemainingTokens: 4000}
		close(ch)
		return ch, nil
	}

	_, err := m.Stream(context.Background(), "question")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	snap := m.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].Role != chat.RoleUser {
		t.Errorf("messages = %+v, want only the user message", snap.Messages)
	}
	if snap.Pending != nil {
		t.Error("pending message survived cancellation")
	}
	if snap.RemainingTokens != nil {
		t.Errorf("RemainingTokens = %v, want untouched nil", *snap.RemainingTokens)
	}
	if snap.Busy {
		t.Error("session stuck busy after cancel")
	}
}

func TestStream_RejectedWhileStreaming(t *testing.T) {
	frames := make(chan backend.StreamFrame)
	fb := &fakeBackend{streamFn: func(context.Context) (<-chan backend.StreamFrame, error) {
		return frames, nil
	}}
	m := newTestManager(fb)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Stream(context.Background(), "first")
	}()

	frames <- backend.StreamFrame{Type: backend.FrameToken, Delta: "x"}

	if _, err := m.Stream(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}

	frames <- backend.StreamFrame{Type: backend.FrameDone, RemainingTokens: 1}
	close(frames)
	<-done
}
