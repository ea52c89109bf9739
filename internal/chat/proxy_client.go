package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
)

// DefaultServerURL is where the proxy server listens by default.
const DefaultServerURL = "http://localhost:3001"

const maxReplyBytes = 1 << 20

// ProxyClient sends questions to a portfolio chat server. The server owns
// the credential, the rate limiter and the portfolio context.
type ProxyClient struct {
	baseURL          string
	httpClient       *http.Client
	portfolioContext string
}

// NewProxyClient creates a client for the server at baseURL. portfolioContext
// is sent along for servers that have none of their own.
func NewProxyClient(baseURL string, client *http.Client, portfolioContext string) *ProxyClient {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ProxyClient{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       client,
		portfolioContext: portfolioContext,
	}
}

// Respond implements Responder.
func (c *ProxyClient) Respond(ctx context.Context, history []domain.HistoryTurn, input string) (string, error) {
	payload, err := json.Marshal(domain.ChatRequest{
		Message:             input,
		Context:             c.portfolioContext,
		ConversationHistory: history,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &llm.Error{
			Kind:    llm.KindUnclassified,
			Err:     fmt.Errorf("chat request: %w", err),
			Message: "Could not reach the chat server. Please try again.",
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", decodeServerError(resp, body)
	}

	var out domain.ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return out.Response, nil
}

// Health checks that the server is up.
func (c *ProxyClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: HTTP %d", resp.StatusCode)
	}
	return nil
}

func decodeServerError(resp *http.Response, body []byte) error {
	var er domain.ErrorResponse
	_ = json.Unmarshal(body, &er)

	kind := llm.Kind(er.Details)
	if !kind.Valid() {
		kind = kindForStatus(resp.StatusCode)
	}

	e := &llm.Error{
		Kind:    kind,
		Err:     fmt.Errorf("server responded HTTP %d", resp.StatusCode),
		Message: er.Error,
	}
	if er.RetryAfter > 0 {
		e.RetryAfter = time.Duration(er.RetryAfter) * time.Second
	} else if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}

func kindForStatus(status int) llm.Kind {
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return llm.KindTimeout
	case http.StatusTooManyRequests:
		return llm.KindRateLimited
	case http.StatusUnauthorized:
		return llm.KindAuth
	case http.StatusBadRequest:
		return llm.KindModel
	default:
		return llm.KindUnclassified
	}
}

// IsCanceled reports whether err is the caller abandoning a request.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
