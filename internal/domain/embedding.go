package domain

import (
	"context"
	"fmt"
)

// Embedder vectorizes one search phrase. Transports, the cache and the
// budget/retry wrappers all satisfy it and stack as decorators.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by upstream providers polled by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is a query vector plus billed tokens. A cache hit carries
// zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// CheckDimensions rejects vectors that would not fit the index. Vectors are
// never padded or truncated to make them fit.
func CheckDimensions(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d, index expects %d", ErrVectorDimMismatch, len(vec), dim)
	}
	return nil
}

// InstructionEmbedder prefixes every phrase with a model-specific query
// instruction, e.g. "query: " for E5-style models.
type InstructionEmbedder struct {
	inner  Embedder
	prefix string
}

// NewInstructionEmbedder wraps inner. An empty prefix is a passthrough.
func NewInstructionEmbedder(inner Embedder, prefix string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, prefix: prefix}
}

func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, e.prefix+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("embed with instruction: %w", err)
	}
	return res, nil
}
