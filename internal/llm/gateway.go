package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 30 * time.Second

// keyPrefix is the fixed prefix of Google AI Studio API keys.
const keyPrefix = "AIza"

var errBudgetExhausted = errors.New("global request budget exhausted")

// Provider performs one generation call against a model backend.
type Provider interface {
	Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	APIKey     string
	Timeout    time.Duration
	Generation domain.GenerationConfig

	// Budget, when set, caps calls across all clients sharing the key.
	Budget *rate.Limiter
}

// Gateway performs exactly one provider call per Generate and classifies
// its outcome. It is safe for concurrent use.
type Gateway struct {
	provider Provider
	apiKey   string
	timeout  time.Duration
	gen      domain.GenerationConfig
	budget   *rate.Limiter
}

// NewGateway creates a gateway around provider.
func NewGateway(provider Provider, cfg GatewayConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		provider: provider,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		timeout:  timeout,
		gen:      cfg.Generation.WithDefaults(),
		budget:   cfg.Budget,
	}
}

// Configured reports whether a credential is present.
func (g *Gateway) Configured() bool {
	return g.apiKey != ""
}

// Timeout returns the per-call bound.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.gen.Model
}

// Generate sends prompt to the provider and returns the generated text.
//
// Every failure is returned as an *Error, except cancellation of ctx by the
// caller, which is returned as ctx.Err() so callers can tell an abandoned
// request apart from a provider failure.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.checkCredential(); err != nil {
		return "", Classify(err)
	}
	if err := g.reserve(); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := g.provider.Generate(callCtx, prompt, g.gen)
		done <- result{text: text, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", Classify(r.err)
		}
		return r.text, nil
	case <-timer.C:
		// The provider goroutine sees the cancellation and its late result
		// lands in the buffered channel unread.
		cancel()
		return "", &Error{Kind: KindTimeout, Err: fmt.Errorf("no response within %s", g.timeout)}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Gateway) checkCredential() error {
	if g.apiKey == "" {
		return ErrNotConfigured
	}
	if !strings.HasPrefix(g.apiKey, keyPrefix) {
		return ErrMalformedKey
	}
	return nil
}

func (g *Gateway) reserve() error {
	if g.budget == nil {
		return nil
	}
	r := g.budget.Reserve()
	if !r.OK() {
		return &Error{Kind: KindRateLimited, Err: errBudgetExhausted}
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return &Error{Kind: KindRateLimited, Err: errBudgetExhausted, RetryAfter: delay}
	}
	return nil
}
