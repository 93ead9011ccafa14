package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jdelaire/evalbot/internal/cli"
	"github.com/jdelaire/evalbot/internal/engine"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively (type exit to quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r := &cli.REPL{
				Evaluator: engine.NewLocal(),
				MaxLen:    v.GetInt("bot.max_result_length"),
			}
			return r.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
