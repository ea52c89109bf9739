// Package cli implements the portfolio-chat terminal widget.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/spf13/cobra"
)

type options struct {
	server  string
	direct  bool
	timeout time.Duration
}

// NewRootCmd builds the command tree. Running it without a subcommand starts
// an interactive chat.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "portfolio-chat",
		Short: "Chat with the portfolio AI assistant from a terminal",
		Long: `Chat with the portfolio AI assistant from a terminal.

By default questions go through the chat server, which holds the Gemini
API key and applies rate limiting. --direct calls Gemini in-process with a
local GEMINI_API_KEY and is meant for local demos only.

Quick Start:
  portfolio-chat                              # interactive chat
  portfolio-chat ask "What are her skills?"   # one question
  portfolio-chat health                       # check the server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", chat.DefaultServerURL, "Chat server base URL")
	cmd.PersistentFlags().BoolVar(&opts.direct, "direct", false, "Call Gemini directly with GEMINI_API_KEY (local demo only)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-question timeout (default CHAT_TIMEOUT)")

	cmd.AddCommand(newChatCmd(opts), newAskCmd(opts), newHealthCmd(opts))
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.Version = version
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
