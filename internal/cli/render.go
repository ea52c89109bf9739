package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// renderer writes transcript entries. Styling and markdown rendering are
// only applied when out is a terminal so piped output stays plain.
type renderer struct {
	out      io.Writer
	styled   bool
	markdown *glamour.TermRenderer
}

func newRenderer(out io.Writer) *renderer {
	r := &renderer{out: out, styled: isTerminal(out)}
	if r.styled {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *renderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return text
	}
	rendered, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

// message prints one transcript entry.
func (r *renderer) message(m domain.Message) {
	if m.Sender == domain.SenderUser {
		fmt.Fprintf(r.out, "%s %s\n", r.style(promptStyle, "You:"), m.Text)
		return
	}
	if strings.HasPrefix(m.Text, chat.FailurePrefix) {
		fmt.Fprintln(r.out, r.style(failureStyle, m.Text))
		return
	}
	fmt.Fprintf(r.out, "%s %s\n", r.style(assistantStyle, "Assistant:"), r.renderMarkdown(m.Text))
}

// outcome prints the result of one submission.
func (r *renderer) outcome(o chat.Outcome) {
	if o.Result == chat.ResultFailed && chat.IsCanceled(o.Err) {
		r.warn("[Cancelled]")
		return
	}
	r.message(o.Reply)
	if o.Err != nil {
		if secs := o.Err.RetryAfterSeconds(); secs > 0 {
			r.info(fmt.Sprintf("Try again in %ds.", secs))
		}
	}
}

func (r *renderer) info(text string) {
	fmt.Fprintln(r.out, r.style(infoStyle, text))
}

func (r *renderer) warn(text string) {
	fmt.Fprintln(r.out, r.style(warningStyle, text))
}

func (r *renderer) success(text string) {
	fmt.Fprintln(r.out, r.style(successStyle, text))
}
