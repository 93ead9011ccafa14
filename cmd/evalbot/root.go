package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdelaire/evalbot/internal/config"
	"github.com/jdelaire/evalbot/internal/logging"
)

// v holds the merged configuration for every subcommand.
var v = config.New()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "evalbot",
		Short:         "VK community bot that evaluates math expressions",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "", "Logging format: console|text|json.")
	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newEngineCmd())
	cmd.AddCommand(newReplCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig() error {
	cfgFile := strings.TrimSpace(v.GetString("config"))
	if cfgFile == "" {
		return nil
	}
	return config.ReadFile(v, cfgFile)
}

func newLogger() (*slog.Logger, error) {
	return logging.New(os.Stderr, logging.Options{
		Level:  v.GetString("logging.level"),
		Format: v.GetString("logging.format"),
	})
}
