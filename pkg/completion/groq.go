package completion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/chatterbox/pkg/llm"
)

const (
	// GroqBaseURL is Groq's OpenAI-compatible API root.
	GroqBaseURL = "https://api.groq.com/openai/v1/"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemma2-9b-it"
)

// GroqConfig configures a Groq client.
type GroqConfig struct {
	APIKey string

	// BaseURL overrides GroqBaseURL, mostly for tests.
	BaseURL string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Groq implements Completer using Groq's OpenAI-compatible Chat Completions API.
type Groq struct {
	apiKey string
	client openai.Client
}

// NewGroq returns a Completer backed by the Groq API.
// Requests are never retried; a failure aborts the turn.
func NewGroq(cfg GroqConfig) *Groq {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GroqBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Groq{
		apiKey: cfg.APIKey,
		client: openai.NewClient(opts...),
	}
}

// Provider returns the provider name
func (g *Groq) Provider() string {
	return "groq"
}

// Complete sends the whole conversation to Groq and returns the assistant reply.
func (g *Groq) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toMessages(req),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("groq: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	created := time.Now()
	if resp.Created > 0 {
		created = time.Unix(resp.Created, 0)
	}

	return &llm.ChatResponse{
		Model:     resp.Model,
		CreatedAt: created,
		Message:   llm.AssistantTurn(resp.Choices[0].Message.Content),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// toMessages converts the turns to OpenAI messages, preserving their order.
func toMessages(req *llm.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, t := range req.Turns {
		switch t.Role {
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(t.Text))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Text))
		}
	}
	return messages
}
