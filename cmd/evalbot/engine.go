package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jdelaire/evalbot/internal/engine"
	"github.com/jdelaire/evalbot/internal/mathexpr"
)

func newEngineCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "engine",
		Short:  "Serve the evaluation protocol on stdin/stdout",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			return engine.Serve(os.Stdin, os.Stdout, mathexpr.NewEngine(), logger)
		},
	}
}
