package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatterbox/pkg/llm"
)

// TraceHistory is the transcript leading up to a traced node.
type TraceHistory struct {
	// Turns in chronological order (oldest first, up to and including the requested node)
	Turns []TraceTurn `json:"turns"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of turns in the history
	Depth int `json:"depth"`
}

// TraceTurn is one stored turn with its DAG links.
type TraceTurn struct {
	Hash       string   `json:"hash"`
	ParentHash *string  `json:"parent_hash,omitempty"`
	Role       llm.Role `json:"role"`
	Text       string   `json:"text"`
	Model      string   `json:"model,omitempty"`
}

// handleTraceStats returns statistics about the transcript DAG.
func (s *Server) handleTraceStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	nodes, err := s.storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := s.storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes": len(nodes),
		"root_count":  len(roots),
		"leaf_count":  len(leaves),
	})
}

// handleGetNode returns a single node by its hash.
func (s *Server) handleGetNode(c *fiber.Ctx) error {
	node, err := s.storer.Get(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(node)
}

// handleListHistories returns every traced conversation, one per leaf node.
func (s *Server) handleListHistories(c *fiber.Ctx) error {
	ctx := c.UserContext()

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]TraceHistory, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := s.buildHistory(ctx, leaf.Hash)
		if err != nil {
			s.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

// handleGetHistory returns the transcript leading up to a given node.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	history, err := s.buildHistory(c.UserContext(), c.Params("hash"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(history)
}

func (s *Server) buildHistory(ctx context.Context, hash string) (*TraceHistory, error) {
	path, err := s.storer.Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	turns := make([]TraceTurn, len(path))
	for i, node := range path {
		turns[i] = TraceTurn{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
			Role:       node.Bucket.Role,
			Text:       node.Bucket.Text,
			Model:      node.Bucket.Model,
		}
	}

	return &TraceHistory{
		Turns:    turns,
		HeadHash: hash,
		Depth:    len(turns),
	}, nil
}
