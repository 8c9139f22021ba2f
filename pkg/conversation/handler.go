package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatterbox/pkg/completion"
	"github.com/papercomputeco/chatterbox/pkg/llm"
	"github.com/papercomputeco/chatterbox/pkg/logger"
)

// State is the turn handler's position in its two-state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingCompletion
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	default:
		return "unknown"
	}
}

// DefaultTimeout bounds a single completion call when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Options tunes how a Handler builds completion requests.
type Options struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// Handler runs chat turns for one session: it appends the user's text, sends the
// whole log to the completer and appends the reply.
type Handler struct {
	completer completion.Completer
	opts      Options
	logger    *zap.Logger
	log       *Log

	mu    sync.Mutex
	state State
}

// NewHandler returns a Handler with an empty log.
func NewHandler(completer completion.Completer, opts Options, logger *zap.Logger) *Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		completer: completer,
		opts:      opts,
		logger:    logger,
		log:       NewLog(),
		state:     StateIdle,
	}
}

// State reports whether the handler is idle or waiting on a completion.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// History returns the current conversation, oldest turn first.
func (h *Handler) History() []llm.Turn {
	return h.log.Snapshot()
}

// Len returns the number of turns recorded.
func (h *Handler) Len() int {
	return h.log.Len()
}

// Submit runs one chat turn for text and returns the updated history.
//
// Blank text is ignored and returns the history unchanged. If the completer fails
// the user's turn is rolled back and a *TurnError wrapping the cause is returned.
func (h *Handler) Submit(ctx context.Context, text string) ([]llm.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return h.log.Snapshot(), nil
	}

	if err := h.transition(StateIdle, StateAwaitingCompletion); err != nil {
		return nil, err
	}
	defer h.release()

	mark := h.log.Len()
	h.log.Append(llm.UserTurn(text))

	req := &llm.ChatRequest{
		Model:        h.opts.Model,
		SystemPrompt: h.opts.SystemPrompt,
		Turns:        h.log.Snapshot(),
		Temperature:  h.opts.Temperature,
		MaxTokens:    h.opts.MaxTokens,
	}

	h.logger.Debug("requesting completion",
		zap.String("model", req.Model),
		zap.Int("turn_count", len(req.Turns)),
		zap.String("content_preview", logger.Truncate(text, 50)),
	)

	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := h.completer.Complete(ctx, req)
	if err == nil && resp == nil {
		err = completion.ErrEmptyCompletion
	}
	if err != nil {
		h.log.truncate(mark)
		h.logger.Warn("completion failed, user turn rolled back",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, &TurnError{Text: text, Err: err}
	}

	h.log.Append(llm.AssistantTurn(resp.Message.Text))

	h.logger.Debug("received completion",
		zap.String("model", resp.Model),
		zap.String("content_preview", logger.Truncate(resp.Message.Text, 100)),
		zap.Duration("duration", time.Since(start)),
	)

	return h.log.Snapshot(), nil
}

// Clear empties the conversation. It fails with ErrBusy while a reply is pending.
func (h *Handler) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateIdle {
		return ErrBusy
	}
	h.log.Clear()
	return nil
}

// release returns the handler to idle once a submission finishes.
func (h *Handler) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = StateIdle
}

func (h *Handler) transition(from, to State) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != from {
		return ErrBusy
	}
	h.state = to
	return nil
}
