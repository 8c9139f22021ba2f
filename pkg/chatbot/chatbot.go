// Package chatbot assembles the completion client, tracing and turn handlers
// from a loaded configuration.
package chatbot

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatterbox/pkg/completion"
	"github.com/papercomputeco/chatterbox/pkg/config"
	"github.com/papercomputeco/chatterbox/pkg/conversation"
	"github.com/papercomputeco/chatterbox/pkg/merkle"
	"github.com/papercomputeco/chatterbox/pkg/telemetry"
)

// Bot holds the pieces shared by every conversation.
type Bot struct {
	Completer completion.Completer

	// Storer holds traced runs. Nil when tracing is disabled.
	Storer merkle.Storer

	options conversation.Options
	logger  *zap.Logger
}

// New builds a Bot from cfg. The caller owns Close.
func New(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	groq := completion.NewGroq(completion.GroqConfig{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
	})
	if cfg.Completion.APIKey == "" {
		logger.Warn("no completion API key configured, every turn will fail",
			zap.String("env", config.EnvCompletionKey),
		)
	}

	bot := &Bot{
		Completer: groq,
		options: conversation.Options{
			Model:        cfg.Completion.Model,
			SystemPrompt: cfg.Completion.SystemPrompt,
			Temperature:  cfg.Completion.Temperature,
			MaxTokens:    cfg.Completion.MaxTokens,
			Timeout:      cfg.Completion.Timeout,
		},
		logger: logger,
	}

	if !cfg.TracingEnabled() {
		return bot, nil
	}

	storer, err := newStorer(cfg.Tracing.DBPath, logger)
	if err != nil {
		return nil, err
	}
	bot.Storer = storer
	bot.Completer = telemetry.NewTracer(groq, storer, groq.Provider(), logger)
	return bot, nil
}

func newStorer(dbPath string, logger *zap.Logger) (merkle.Storer, error) {
	if dbPath == "" {
		logger.Info("tracing to in-memory storage")
		return merkle.NewMemoryStorer(), nil
	}

	storer, err := merkle.NewSQLiteStorer(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
	}
	logger.Info("tracing to SQLite storage", zap.String("path", dbPath))
	return storer, nil
}

// NewHandler starts a fresh conversation.
func (b *Bot) NewHandler() *conversation.Handler {
	return conversation.NewHandler(b.Completer, b.options, b.logger)
}

// Close releases the trace storer.
func (b *Bot) Close() error {
	if b.Storer == nil {
		return nil
	}
	return b.Storer.Close()
}
