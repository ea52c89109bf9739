package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/spf13/cobra"
)

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			w, err := opts.mount(newRenderer(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer w.close()

			outcome, err := w.submit(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			newRenderer(cmd.OutOrStdout()).outcome(outcome)

			if outcome.Result == chat.ResultFailed {
				return fmt.Errorf("question failed: %s", outcome.Err.Kind)
			}
			return nil
		},
	}
}
