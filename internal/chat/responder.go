// Package chat drives one chat widget: it owns the submit lifecycle and
// hands each question to a Responder.
package chat

import (
	"context"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/prompt"
)

// Responder produces the assistant reply for input given the preceding
// conversation, oldest first.
type Responder interface {
	Respond(ctx context.Context, history []domain.HistoryTurn, input string) (string, error)
}

// DirectResponder assembles the prompt and calls the gateway in-process.
type DirectResponder struct {
	assembler        prompt.Assembler
	portfolioContext string
	gateway          *llm.Gateway
}

// NewDirectResponder creates a responder that talks to the provider itself.
func NewDirectResponder(a prompt.Assembler, portfolioContext string, g *llm.Gateway) *DirectResponder {
	return &DirectResponder{assembler: a, portfolioContext: portfolioContext, gateway: g}
}

// Respond implements Responder.
func (d *DirectResponder) Respond(ctx context.Context, history []domain.HistoryTurn, input string) (string, error) {
	return d.RespondWithContext(ctx, d.portfolioContext, history, input)
}

// RespondWithContext answers using portfolioContext instead of the one the
// responder was built with.
func (d *DirectResponder) RespondWithContext(ctx context.Context, portfolioContext string, history []domain.HistoryTurn, input string) (string, error) {
	p, err := d.assembler.Build(portfolioContext, history, input)
	if err != nil {
		return "", err
	}
	return d.gateway.Generate(ctx, p)
}

// PortfolioContext returns the context block the responder was built with.
func (d *DirectResponder) PortfolioContext() string {
	return d.portfolioContext
}
