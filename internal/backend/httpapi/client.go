package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/pkg/chat"
)

// Wire types for JSON serialization.

type chatRequest struct {
	Message string `json:"message"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Matches []chat.TranscriptMatch `json:"matches"`
}

// Messages implements backend.Backend.
func (c *Client) Messages(ctx context.Context, interviewID string) ([]chat.Message, error) {
	ctx, span := c.startSpan(ctx, "Messages", interviewID)
	defer span.End()

	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoint(interviewID, "messages"), nil)
	if err != nil {
		return nil, spanErr(span, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, spanErr(span, handleErrorResponse(resp))
	}

	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, spanErr(span, fmt.Errorf("decode messages: %w", err))
	}
	return messages, nil
}

// Send implements backend.Backend.
func (c *Client) Send(ctx context.Context, interviewID, content string) (chat.ExchangeResult, error) {
	ctx, span := c.startSpan(ctx, "Send", interviewID)
	defer span.End()

	resp, err := c.doRequest(ctx, http.MethodPost, c.endpoint(interviewID, "chat"), chatRequest{Message: content})
	if err != nil {
		return chat.ExchangeResult{}, spanErr(span, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return chat.ExchangeResult{}, spanErr(span, handleErrorResponse(resp))
	}

	var result chat.ExchangeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return chat.ExchangeResult{}, spanErr(span, fmt.Errorf("decode exchange result: %w", err))
	}
	return result, nil
}

// Search implements backend.Backend.
func (c *Client) Search(ctx context.Context, interviewID, query string, limit int) ([]chat.TranscriptMatch, error) {
	ctx, span := c.startSpan(ctx, "Search", interviewID)
	defer span.End()

	resp, err := c.doRequest(ctx, http.MethodPost, c.endpoint(interviewID, "search"), searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, spanErr(span, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, spanErr(span, handleErrorResponse(resp))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, spanErr(span, fmt.Errorf("decode search matches: %w", err))
	}
	return result.Matches, nil
}

// endpoint builds the URL for an interview-scoped path segment.
func (c *Client) endpoint(interviewID, suffix string) string {
	return c.config.BaseURL + "/chat/" + interviewID + "/" + suffix
}

// doRequest executes an HTTP request with the bearer credential attached.
// A nil body sends no payload.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining credential: %w", backend.ErrAuthentication, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Do not classify caller cancellation as backend failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", backend.ErrBackendDown, err)
	}

	return resp, nil
}

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 4096

// handleErrorResponse maps HTTP error status codes to sentinel errors.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", backend.ErrInsufficientCredits, body)
	case resp.StatusCode == http.StatusForbidden && isQuotaError(body):
		return fmt.Errorf("%w: %s", backend.ErrInsufficientCredits, body)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", backend.ErrAuthentication, resp.StatusCode, body)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d: %s", backend.ErrBackendDown, resp.StatusCode, body)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
}

// isQuotaError checks if an error body indicates an exhausted token budget.
func isQuotaError(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "insufficient") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "token balance")
}

// startSpan begins a client span for one backend operation.
func (c *Client) startSpan(ctx context.Context, op, interviewID string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "httpapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("interview.id", interviewID)),
	)
}

// spanErr records err on the span and passes it through.
func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
