// Package prompt assembles the text sent to the generative model for one turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/portfolio"
)

// DefaultWindow is how many trailing history turns accompany a new question.
const DefaultWindow = 5

const (
	contextHeader = "Portfolio Context:"
	historyHeader = "Current conversation history:"
	assistantCue  = "Assistant:"
)

// Assembler builds prompt envelopes. It holds no per-request state.
type Assembler struct {
	Subject    string
	Pronoun    string
	HasContact bool
	Window     int
}

// NewAssembler derives assembler settings from a portfolio.
func NewAssembler(p *portfolio.Portfolio, window int) Assembler {
	if window <= 0 {
		window = DefaultWindow
	}
	return Assembler{
		Subject:    p.Subject(),
		Pronoun:    p.ThirdPerson(),
		HasContact: p.ContactLines() != "",
		Window:     window,
	}
}

// Instructions returns the fixed behavior block that opens every envelope.
func (a Assembler) Instructions() string {
	subject := a.Subject
	if subject == "" {
		subject = "the site owner"
	}
	pronoun := a.Pronoun
	if pronoun == "" {
		pronoun = "they"
	}

	contactRule := "- If asked about contact information, direct the visitor to the contact section of the portfolio."
	if a.HasContact {
		contactRule = "- When asked for contact details, share only the email address, LinkedIn URL, and GitHub URL listed in the contact information. Never invent other contact details."
	}

	lines := []string{
		fmt.Sprintf("You are %s's AI assistant for the portfolio website. You know %s's background, skills, projects, and experience from the portfolio context below.", subject, subject),
		"",
		"Instructions:",
		fmt.Sprintf("- Answer only questions about %s, based on the portfolio context.", subject),
		fmt.Sprintf("- Always refer to %s in the third person as %q.", subject, pronoun),
		"- Be conversational, friendly, and professional. Keep responses concise but informative.",
		"- If information is not available in the context, say so politely.",
		contactRule,
		fmt.Sprintf("- If the user asks anything not related to %s's portfolio, respond: \"I'm sorry, I can only answer questions about %s's portfolio.\"", subject, subject),
	}
	return strings.Join(lines, "\n")
}

// Build returns the envelope for one outbound call. history is the
// conversation so far, oldest first, not including input.
func (a Assembler) Build(portfolioContext string, history []domain.HistoryTurn, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.ErrEmptyInput
	}

	var b strings.Builder
	b.WriteString(a.Instructions())
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	b.WriteString("\n")
	b.WriteString(portfolioContext)
	b.WriteString("\n\n")
	b.WriteString(historyHeader)
	b.WriteString("\n")
	for _, turn := range Window(history, a.window()) {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role.Label(), turn.Content)
	}
	fmt.Fprintf(&b, "%s: %s\n", domain.SenderUser.Label(), input)
	b.WriteString(assistantCue)
	return b.String(), nil
}

func (a Assembler) window() int {
	if a.Window <= 0 {
		return DefaultWindow
	}
	return a.Window
}

// Window returns the last n turns in their original order.
func Window(history []domain.HistoryTurn, n int) []domain.HistoryTurn {
	if n <= 0 {
		return nil
	}
	if n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}
