package llm

import "time"

// ChatResponse is a single completion returned by the provider.
type ChatResponse struct {
	Model     string    `json:"model"`      // Model that generated the response
	CreatedAt time.Time `json:"created_at"` // Response timestamp
	Message   Turn      `json:"message"`    // The assistant's reply

	Usage Usage `json:"usage"`
}

// Usage reports token accounting for a completion, when the provider returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}
