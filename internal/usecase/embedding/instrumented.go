// Package embedding puts budget enforcement and per-request token accounting
// in front of the query embedder. Request and token counters per model are
// recorded by the transport.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/usecase/budget"
)

// InstrumentedEmbedder is the outermost embedder in the chain.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	model  string
	budget budget.Checker
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. b may be nil for an unlimited budget.
func NewInstrumentedEmbedder(inner domain.Embedder, model string, b budget.Checker, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, model: model, budget: b, logger: logger}
}

// Embed refuses when the budget rejects, otherwise embeds and charges the
// billed tokens to both the budget and the request usage. Cache hits bill zero.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := budget.Admit(ctx, p.budget); err != nil {
		p.logger.Error("Embedding budget exhausted", zap.String("model", p.model), zap.Error(err))
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Warn("Query embedding failed",
			zap.String("model", p.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).AddEmbeddingTokens(result.TotalTokens)
	budget.Spend(p.budget, result.TotalTokens)

	p.logger.Debug("Query embedded",
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
