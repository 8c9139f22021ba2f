package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/chatterbox/cmd/chatterbox/chat"
	servecmder "github.com/papercomputeco/chatterbox/cmd/chatterbox/serve"
	tracescmder "github.com/papercomputeco/chatterbox/cmd/chatterbox/traces"
)

const rootLongDesc string = `chatterbox is a single-turn chatbot.

Each message is sent, together with the conversation so far, to a hosted
language model and the reply is appended to the conversation. Use "serve"
for the web UI or "chat" to talk from the terminal.

Credentials are read from the environment (or a .env file):
  GROQ_API_KEY       completion provider key
  LANGCHAIN_API_KEY  enables run tracing`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatterbox",
		Short:         "A single-turn LLM chatbot",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(tracescmder.NewTracesCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
