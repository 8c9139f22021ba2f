// Package merkle stores conversation transcripts as a content-addressed Merkle DAG.
// Each turn is a node whose hash covers its content and its parent's hash, so
// identical conversation prefixes share nodes and divergent replies branch.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/chatterbox/pkg/llm"
)

// BucketTypeTurn marks a bucket holding a single conversation turn.
const BucketTypeTurn = "turn"

// Bucket is the hashable payload of a node.
type Bucket struct {
	Type  string   `json:"type"`
	Role  llm.Role `json:"role"`
	Text  string   `json:"text"`
	Model string   `json:"model,omitempty"`
}

// TurnBucket wraps a conversation turn produced by model.
func TurnBucket(turn llm.Turn, model string) Bucket {
	return Bucket{
		Type:  BucketTypeTurn,
		Role:  turn.Role,
		Text:  turn.Text,
		Model: model,
	}
}

// Turn returns the conversation turn held by the bucket.
func (b Bucket) Turn() llm.Turn {
	return llm.Turn{Role: b.Role, Text: b.Text}
}

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Bucket Bucket `json:"bucket"`
}

// input is the canonical form that gets hashed.
type input struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

// NewNode creates a new node with the computed hash for the provided bucket
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}

	n.Hash = n.computeHash()
	return n
}

func (n *Node) computeHash() string {
	i := &input{
		Bucket: n.Bucket,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Struct field order makes the encoding deterministic
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Chain builds a linked run of nodes for turns, appended under parent (which may be nil).
// The returned slice is ordered oldest first.
func Chain(parent *Node, model string, turns ...llm.Turn) []*Node {
	nodes := make([]*Node, 0, len(turns))
	for _, t := range turns {
		n := NewNode(TurnBucket(t, model), parent)
		nodes = append(nodes, n)
		parent = n
	}
	return nodes
}
