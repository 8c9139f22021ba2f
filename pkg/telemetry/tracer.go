// Package telemetry records completion runs for later inspection.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatterbox/pkg/completion"
	"github.com/papercomputeco/chatterbox/pkg/llm"
	"github.com/papercomputeco/chatterbox/pkg/logger"
	"github.com/papercomputeco/chatterbox/pkg/merkle"
)

// Tracer wraps a Completer, logging each run and storing the exchange as a
// transcript chain in a merkle.Storer.
type Tracer struct {
	next     completion.Completer
	storer   merkle.Storer
	logger   *zap.Logger
	provider string
}

// NewTracer returns a traced completer. provider names the upstream in run records.
func NewTracer(next completion.Completer, storer merkle.Storer, provider string, logger *zap.Logger) *Tracer {
	return &Tracer{
		next:     next,
		storer:   storer,
		logger:   logger,
		provider: provider,
	}
}

// Complete forwards the request and records the run. Recording failures are
// logged and never fail the call.
func (t *Tracer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	runID := uuid.NewString()
	start := time.Now()

	runLogger := t.logger.With(
		zap.String("run_id", runID),
		zap.String("provider", t.provider),
	)
	runLogger.Debug("run started",
		zap.String("model", req.Model),
		zap.Int("turn_count", len(req.Turns)),
	)

	resp, err := t.next.Complete(ctx, req)
	if err != nil {
		runLogger.Error("run failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	headHash, storeErr := t.record(ctx, &llm.ConversationTurn{
		RunID:    runID,
		Provider: t.provider,
		Request:  req,
		Response: resp,
	})
	if storeErr != nil {
		runLogger.Error("failed to store run", zap.Error(storeErr))
	}

	runLogger.Info("run finished",
		zap.String("model", resp.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("head_hash", logger.Truncate(headHash, 16)),
	)

	return resp, nil
}

// record stores the request turns followed by the reply and returns the head hash.
// Identical histories land on the same nodes, so only new turns are written.
func (t *Tracer) record(ctx context.Context, run *llm.ConversationTurn) (string, error) {
	model := run.Response.Model
	if model == "" {
		model = run.Request.Model
	}

	turns := append(append([]llm.Turn{}, run.Request.Turns...), run.Response.Message)
	nodes := merkle.Chain(nil, model, turns...)
	for _, node := range nodes {
		if err := t.storer.Put(ctx, node); err != nil {
			return "", fmt.Errorf("storing turn node: %w", err)
		}
	}

	return nodes[len(nodes)-1].Hash, nil
}
