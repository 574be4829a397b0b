// Package enhance rewrites search queries through a generative provider, best effort.
package enhance

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/prompt"
	"github.com/kailas-cloud/bookscout/internal/metrics"
	"github.com/kailas-cloud/bookscout/internal/usecase/retry"
)

// DefaultMaxChars caps accepted rewrites.
const DefaultMaxChars = 500

// Options tune the rewrite call.
type Options struct {
	MaxChars    int
	MaxTokens   int
	Temperature float32
}

// Enhancer never fails: any problem yields the original query.
type Enhancer struct {
	gen    domain.Generator
	exec   *retry.Executor
	opts   Options
	logger *zap.Logger
}

// New creates an Enhancer. A nil generator disables enhancement.
func New(gen domain.Generator, exec *retry.Executor, opts Options, logger *zap.Logger) *Enhancer {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &Enhancer{gen: gen, exec: exec, opts: opts, logger: logger}
}

// Enhance returns the rewritten query, or query itself when the rewrite fails,
// comes back empty or exceeds the length cap.
func (e *Enhancer) Enhance(ctx context.Context, query string) string {
	if e == nil || e.gen == nil {
		return query
	}

	req := prompt.QueryEnhancement(query)
	req.MaxTokens = e.opts.MaxTokens
	req.Temperature = e.opts.Temperature

	res, err := retry.Value(ctx, e.exec, "query_enhancement", func(ctx context.Context) (domain.GenerateResult, error) {
		return e.gen.Generate(ctx, req)
	})
	if err != nil {
		metrics.QueryEnhancementTotal.WithLabelValues("error").Inc()
		e.logger.Warn("Query enhancement failed, using original query", zap.Error(err))
		return query
	}

	out := clean(res.Text)
	switch {
	case out == "":
		metrics.QueryEnhancementTotal.WithLabelValues("original").Inc()
		e.logger.Debug("Query enhancement returned nothing usable")
		return query
	case utf8.RuneCountInString(out) > e.opts.MaxChars:
		metrics.QueryEnhancementTotal.WithLabelValues("original").Inc()
		e.logger.Debug("Query enhancement too long, ignored",
			zap.Int("chars", utf8.RuneCountInString(out)), zap.Int("max", e.opts.MaxChars))
		return query
	}

	metrics.QueryEnhancementTotal.WithLabelValues("enhanced").Inc()
	e.logger.Debug("Query enhanced", zap.String("query", query), zap.String("enhanced", out))
	return out
}

// clean collapses whitespace and strips a "Query:" echo and wrapping quotes.
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if head, rest, ok := strings.Cut(s, ":"); ok && strings.EqualFold(strings.TrimSpace(head), "query") {
		s = strings.TrimSpace(rest)
	}
	return strings.Trim(s, "\"'`")
}
