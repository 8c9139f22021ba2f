package chatcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/chatterbox/pkg/chatbot"
	"github.com/papercomputeco/chatterbox/pkg/config"
	"github.com/papercomputeco/chatterbox/pkg/logger"
)

const chatLongDesc string = `Chat with the model from the terminal.

Works like the web UI: each message is sent with the conversation so far
and the reply is appended. Type "/clear" to start over and "q" or "quit"
to exit. Logs go to chat.log_file since the terminal is in use.

Examples:
  chatterbox chat
  chatterbox chat --config ./chatterbox.toml`

const chatShortDesc string = "Chat from the terminal"

type chatCommander struct {
	configPath string
	envFile    string
	debug      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config (default: ./chatterbox.toml if present)")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", config.DefaultEnvFile, "Path to .env file with credentials")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(cfg.Chat.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	log := logger.NewLoggerTo(logOut, cfg.Debug || c.debug, false)
	defer log.Sync()

	bot, err := chatbot.New(cfg, log)
	if err != nil {
		return fmt.Errorf("could not set up chatbot: %w", err)
	}
	defer bot.Close()

	if ctx == nil {
		ctx = context.Background()
	}

	log.Info("terminal chat started", zap.String("model", cfg.Completion.Model))

	p := tea.NewProgram(
		newModel(ctx, bot.NewHandler(), terminalWidth(), markdownStyle()),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal chat failed: %w", err)
	}
	return nil
}

// openLog returns the log destination; an empty path discards logs.
func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

// markdownStyle picks the glamour style for the terminal on stdout.
func markdownStyle() string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
