package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatterbox/pkg/chatbot"
	"github.com/papercomputeco/chatterbox/pkg/config"
	"github.com/papercomputeco/chatterbox/pkg/logger"
	"github.com/papercomputeco/chatterbox/server"
)

const serveLongDesc string = `Serve the chat web UI.

Every browser session gets its own conversation, kept in memory until the
session has been idle for session.ttl. When tracing is enabled the
recorded runs can be browsed under /traces.

Examples:
  chatterbox serve
  chatterbox serve --listen :9000 --config ./chatterbox.toml`

const serveShortDesc string = "Serve the chat web UI"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	configPath string
	envFile    string
	listen     string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config (default: ./chatterbox.toml if present)")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", config.DefaultEnvFile, "Path to .env file with credentials")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	if c.listen != "" {
		cfg.Listen = c.listen
	}

	log := logger.NewLogger(cfg.Debug || c.debug)
	defer log.Sync()

	log.Info("chatterbox starting",
		zap.String("listen", cfg.Listen),
		zap.String("model", cfg.Completion.Model),
		zap.Bool("tracing", cfg.TracingEnabled()),
	)

	bot, err := chatbot.New(cfg, log)
	if err != nil {
		return fmt.Errorf("could not set up chatbot: %w", err)
	}

	srv, err := server.New(server.Config{
		ListenAddr: cfg.Listen,
		SessionTTL: cfg.Session.TTL,
		Model:      cfg.Completion.Model,
	}, bot.NewHandler, bot.Storer, log)
	if err != nil {
		bot.Close()
		return fmt.Errorf("could not create server: %w", err)
	}
	defer srv.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
