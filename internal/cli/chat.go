package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  /reset   start a new conversation
  /help    show this help
  /quit    exit (also Ctrl-D)
Ctrl-C while waiting for an answer cancels it.`

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *options) error {
	w, err := opts.mount(newRenderer(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer w.close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	// Outside of Prompt the terminal is in cooked mode, so Ctrl-C arrives
	// as a signal.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	r := &repl{widget: w, in: line, out: newRenderer(cmd.OutOrStdout()), interrupts: interrupts}
	return r.run(cmd.Context())
}

type repl struct {
	widget     *widget
	in         lineReader
	out        *renderer
	interrupts <-chan os.Signal
}

func (r *repl) run(ctx context.Context) error {
	r.out.info("Type /help for commands.")
	r.showTranscript()

	for {
		input, err := r.in.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !r.command(input) {
				return nil
			}
			continue
		}

		outcome, err := r.submit(ctx, input)
		if err != nil {
			if errors.Is(err, domain.ErrSessionClosed) {
				return nil
			}
			r.out.warn(err.Error())
			continue
		}
		r.out.outcome(outcome)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// submit runs one submission, cancelling it if an interrupt arrives first.
func (r *repl) submit(ctx context.Context, input string) (chat.Outcome, error) {
	r.drainInterrupts()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.interrupts:
			cancel()
		case <-subCtx.Done():
		}
	}()

	return r.widget.submit(subCtx, input)
}

// drainInterrupts drops a Ctrl-C that arrived while no submission was
// pending, so it cannot cancel the next one.
func (r *repl) drainInterrupts() {
	for {
		select {
		case <-r.interrupts:
		default:
			return
		}
	}
}

// command handles a slash command and reports whether the REPL continues.
func (r *repl) command(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return false
	case "/reset":
		r.widget.reset()
		r.out.info("Started a new conversation.")
		r.showTranscript()
	case "/help":
		r.out.info(replHelp)
	default:
		r.out.warn("Unknown command " + input + ". Type /help for commands.")
	}
	return true
}

func (r *repl) showTranscript() {
	for _, m := range r.widget.transcript() {
		r.out.message(m)
	}
}
