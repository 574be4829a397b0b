// Package generation decorates generative providers with budget enforcement
// and per-request usage accounting.
package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/usecase/budget"
)

// InstrumentedGenerator wraps a Generator. Token counters per provider live
// in the transport layer.
type InstrumentedGenerator struct {
	inner    domain.Generator
	provider string
	model    string
	budget   budget.Checker
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a generator. b may be nil.
func NewInstrumentedGenerator(
	inner domain.Generator, provider, model string,
	b budget.Checker, logger *zap.Logger,
) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, provider: provider, model: model, budget: b, logger: logger}
}

// Generate checks the budget, delegates, then charges usage on success.
// Failed calls charge nothing even when the provider billed partial output.
func (g *InstrumentedGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if err := budget.Admit(ctx, g.budget); err != nil {
		g.logger.Error("Generation budget exhausted", zap.String("provider", g.provider), zap.Error(err))
		return domain.GenerateResult{}, err
	}

	start := time.Now()
	res, err := g.inner.Generate(ctx, req)
	duration := time.Since(start)
	if err != nil {
		g.logger.Warn("Generation request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.GenerateResult{}, fmt.Errorf("generate: %w", err)
	}

	total := res.TotalTokens()
	domain.UsageFromContext(ctx).AddGenerationTokens(total)
	budget.Spend(g.budget, total)

	g.logger.Debug("Generation request completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Bool("web_search", req.WebSearch),
		zap.Int("citations", len(res.Citations)),
		zap.Int("total_tokens", total),
	)
	return res, nil
}
