package cli

import (
	"context"
	"fmt"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/probe"
	"github.com/spf13/cobra"
)

func newHealthCmd(opts *options) *cobra.Command {
	var grpcAddr string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the chat server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout := opts.timeout
			if timeout <= 0 {
				timeout = llm.DefaultTimeout
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := newRenderer(cmd.OutOrStdout())

			client := chat.NewProxyClient(opts.server, nil, "")
			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("chat server at %s: %w", opts.server, err)
			}
			out.success("✅ Chat server OK: " + opts.server)

			if grpcAddr != "" {
				if err := probe.Check(ctx, grpcAddr, probe.ServiceName); err != nil {
					return fmt.Errorf("gRPC health probe at %s: %w", grpcAddr, err)
				}
				out.success("✅ gRPC health probe SERVING: " + grpcAddr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "Also check the gRPC health probe at host:port")
	return cmd
}
