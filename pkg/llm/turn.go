package llm

// ConversationTurn is a complete request-response pair as recorded by tracing.
type ConversationTurn struct {
	RunID    string        `json:"run_id"`
	Provider string        `json:"provider"`
	Request  *ChatRequest  `json:"request"`
	Response *ChatResponse `json:"response"`
}
