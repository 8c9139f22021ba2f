// Package completion talks to hosted chat completion providers.
package completion

import (
	"context"
	"errors"

	"github.com/papercomputeco/chatterbox/pkg/llm"
)

var (
	// ErrMissingAPIKey is returned when a provider is used without credentials.
	ErrMissingAPIKey = errors.New("completion: API key not set")

	// ErrEmptyCompletion is returned when the provider answers without any choices.
	ErrEmptyCompletion = errors.New("completion: no choices in response")
)

// Completer turns a conversation into a single assistant reply.
type Completer interface {
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Func adapts an ordinary function to the Completer interface.
type Func func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

func (f Func) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return f(ctx, req)
}
