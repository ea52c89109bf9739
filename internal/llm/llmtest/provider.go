// Package llmtest provides a scriptable Provider for tests.
package llmtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/portfolio-chat/internal/domain"
)

// TestKey is a credential the Gateway accepts as well-formed.
const TestKey = "AIzaTestKey"

// Provider answers every call with Reply after Delay, or fails with Err.
// With Hang set it never answers and only returns once ctx is done.
type Provider struct {
	Reply string
	Err   error
	Delay time.Duration
	Hang  bool

	// ReplyFunc, when set, computes the reply from the prompt.
	ReplyFunc func(prompt string) (string, error)

	calls atomic.Int32

	mu      sync.Mutex
	prompts []string
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string, _ domain.GenerationConfig) (string, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.Hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := sleepCtx(ctx, p.Delay); err != nil {
		return "", err
	}
	if p.ReplyFunc != nil {
		return p.ReplyFunc(prompt)
	}
	if p.Err != nil {
		return "", p.Err
	}
	return p.Reply, nil
}

// Calls returns how many times Generate ran.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

// Prompts returns every prompt received, in order.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// LastPrompt returns the most recent prompt, or "".
func (p *Provider) LastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
