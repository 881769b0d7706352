package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/pkg/chat"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}, backend.StaticToken("test-token"), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"missing base_url", Config{}, true},
		{"bad scheme", Config{BaseURL: "ftp://example.com"}, true},
		{"valid", Config{BaseURL: "https://example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.defaults()
			err := tt.config.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	served := []chat.Message{
		{ID: "m1", Role: chat.RoleUser, Content: "hello", CreatedAt: now},
		{ID: "m2", Role: chat.RoleAssistant, Content: "hi", CreatedAt: now.Add(time.Second)},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/chat/iv-42/messages" {
			t.Errorf("path = %s, want /chat/iv-42/messages", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer credential", got)
		}
		writeJSON(w, served)
	}))
	defer server.Close()

	msgs, err := newTestClient(t, server.URL).Messages(context.Background(), "iv-42")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].Role != chat.RoleAssistant {
		t.Errorf("messages = %+v, want served history", msgs)
	}
}

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/iv-42/chat" {
			t.Errorf("path = %s, want /chat/iv-42/chat", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Message != "What motivated the career change?" {
			t.Errorf("message = %q", req.Message)
		}
		writeJSON(w, chat.ExchangeResult{
			UserMessage:      chat.Message{ID: "u1", Role: chat.RoleUser, Content: req.Message},
			AssistantMessage: chat.Message{ID: "a1", Role: chat.RoleAssistant, Content: "A new challenge."},
			RemainingTokens:  4850,
		})
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).Send(context.Background(), "iv-42", "What motivated the career change?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.RemainingTokens != 4850 {
		t.Errorf("RemainingTokens = %d, want 4850", result.RemainingTokens)
	}
	if result.AssistantMessage.Content != "A new challenge." {
		t.Errorf("assistant content = %q", result.AssistantMessage.Content)
	}
}

func TestSend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"payment required", http.StatusPaymentRequired, "out of tokens", backend.ErrInsufficientCredits},
		{"forbidden quota", http.StatusForbidden, "insufficient token balance", backend.ErrInsufficientCredits},
		{"unauthorized", http.StatusUnauthorized, "bad token", backend.ErrAuthentication},
		{"forbidden", http.StatusForbidden, "not yours", backend.ErrAuthentication},
		{"server error", http.StatusInternalServerError, "boom", backend.ErrBackendDown},
		{"rate limited", http.StatusTooManyRequests, "slow down", backend.ErrBackendDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, tt.body, tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Send(context.Background(), "iv-1", "hi")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "pricing objections" || req.Limit != 5 {
			t.Errorf("request = %+v", req)
		}
		writeJSON(w, searchResponse{Matches: []chat.TranscriptMatch{
			{Speaker: "interviewee", Text: "the price felt steep", StartTime: 132.5, EndTime: 139.0, Score: 0.91},
		}})
	}))
	defer server.Close()

	matches, err := newTestClient(t, server.URL).Search(context.Background(), "iv-1", "pricing objections", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Speaker != "interviewee" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestTokenProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, nil)
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL}, backend.StaticToken(""), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Messages(context.Background(), "iv-1")
	if !errors.Is(err, backend.ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}
