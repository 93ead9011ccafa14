package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jdelaire/evalbot/adapters/vk_api"
	"github.com/jdelaire/evalbot/adapters/vk_longpoll"
	"github.com/jdelaire/evalbot/core"
	"github.com/jdelaire/evalbot/internal/cli"
	"github.com/jdelaire/evalbot/internal/config"
	"github.com/jdelaire/evalbot/internal/engine"
	"github.com/jdelaire/evalbot/internal/events"
	"github.com/jdelaire/evalbot/internal/keychain"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Listen for VK messages until the owner sends exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			cfg := config.Load(v, tokenFromKeychain)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, cmd.OutOrStdout(), cfg, logger)
		},
	}
}

func tokenFromKeychain() (string, error) {
	return keychain.Get(keychain.TokenAccount)
}

func runBot(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	evaluator, closeEngine, err := newEvaluator(ctx, cfg, logger.With("component", "engine"))
	if err != nil {
		return err
	}
	defer closeEngine()

	publisher := newPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("closing event publisher", "error", err)
		}
	}()

	api := vk_api.New(cfg.VK.Token, cfg.VK.GroupID).
		WithBaseURL(cfg.VK.APIBaseURL).
		WithVersion(cfg.VK.APIVersion)
	receiver := vk_longpoll.New(api, logger.With("component", "longpoll"))

	d := core.NewDispatcher(cfg.Core(), core.Deps{
		Evaluator: evaluator,
		Messenger: api,
		Presence:  api,
		Publisher: publisher,
		Logger:    logger,
	})

	printBanner(out, cfg)
	return d.Run(ctx, receiver)
}

// newEvaluator brings up the configured engine. A process engine that fails
// its start-up ping is fatal.
func newEvaluator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.Evaluator, func(), error) {
	if cfg.Engine.Mode == engine.ModeLocal {
		return engine.NewLocal(), func() {}, nil
	}

	exec, args := cfg.Engine.Exec, []string(nil)
	if exec == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: locate executable: %v", engine.ErrEngineLoad, err)
		}
		exec, args = self, []string{"engine"}
	}

	p := engine.NewProcess(engine.ProcessConfig{
		Exec:         exec,
		Args:         args,
		CallTimeout:  cfg.Engine.CallTimeout,
		RespMaxBytes: cfg.Engine.RespMaxBytes,
	}, logger)
	if err := p.Start(ctx); err != nil {
		return nil, nil, err
	}
	return p, func() { p.Close() }, nil
}

// newPublisher connects to NATS when configured. Events are optional, so a
// connection failure only disables them.
func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.Events.NATSURL == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(cfg.Events.NATSURL)
	if err != nil {
		logger.Warn("event publishing disabled", "error", err)
		return &events.NoopPublisher{}
	}
	logger.Info("publishing events", "nats_url", cfg.Events.NATSURL)
	return pub
}

func printBanner(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, cli.TitleStyle.Render("evalbot"))
	fmt.Fprintf(out, "  %s club%d (@%s)\n", cli.StatusBadge(true), cfg.VK.GroupID, cfg.VK.GroupName)
	fmt.Fprintf(out, "  %s engine: %s\n", cli.StatusBadge(true), cfg.Engine.Mode)
	fmt.Fprintf(out, "  %s events: %s\n", cli.StatusBadge(cfg.Events.NATSURL != ""), cli.DimStyle.Render(orNone(cfg.Events.NATSURL)))
	fmt.Fprintln(out, cli.DimStyle.Render(fmt.Sprintf("  send %q from user %d to stop", "exit", cfg.VK.OwnerID)))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
