package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/interviewkit/chatcore/internal/session"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// streamPrinter renders streamed replies incrementally: on every state
// change it prints only the suffix of the pending content that has not been
// written yet.
type streamPrinter struct {
	out io.Writer

	mu      sync.Mutex
	active  bool
	printed int
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

// beginReply arms the printer for a new streamed reply.
func (p *streamPrinter) beginReply() {
	p.mu.Lock()
	p.active = true
	p.printed = 0
	p.mu.Unlock()
}

// update prints the unprinted tail of the pending reply, if any.
func (p *streamPrinter) update(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || snap.Pending == nil {
		return
	}
	content := snap.Pending.Content
	if len(content) <= p.printed {
		return
	}
	fmt.Fprint(p.out, content[p.printed:])
	p.printed = len(content)
}

// endReply prints any tail committed after the last update (a truncated
// stream commits without a final token frame) and disarms the printer.
func (p *streamPrinter) endReply(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active && len(snap.Messages) > 0 {
		last := snap.Messages[len(snap.Messages)-1]
		if last.Role == chat.RoleAssistant && len(last.Content) > p.printed {
			fmt.Fprint(p.out, last.Content[p.printed:])
		}
	}
	if p.active && p.printed > 0 {
		fmt.Fprintln(p.out)
	}
	p.active = false
	p.printed = 0
}

// printMessage renders one committed message with a role prefix.
func (p *streamPrinter) printMessage(msg chat.Message) {
	prefix := "you"
	if msg.Role == chat.RoleAssistant {
		prefix = "assistant"
	}
	fmt.Fprintf(p.out, "[%s] %s\n", prefix, msg.Content)
}
