package llm

// ChatRequest is a completion request carrying the whole conversation as context.
type ChatRequest struct {
	Model        string `json:"model"`                   // Model name (e.g., "gemma2-9b-it")
	SystemPrompt string `json:"system_prompt,omitempty"` // Optional instructions sent ahead of the turns
	Turns        []Turn `json:"turns"`                   // Conversation history, oldest first

	// Generation options, zero means provider default
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}
