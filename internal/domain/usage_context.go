package domain

import (
	"context"
	"sync"
)

type requestUsageKey struct{}

// RequestUsage collects provider token spend for a single HTTP request.
// The handler installs it, services add to it, the handler turns it into
// X-Embedding-Tokens / X-Generation-Tokens response headers.
type RequestUsage struct {
	mu               sync.Mutex
	embeddingTokens  int
	generationTokens int
	embedded         bool // set even on a cache hit that spent 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, requestUsageKey{}, u), u
}

// UsageFromContext returns the collector, or nil when the request has none.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(requestUsageKey{}).(*RequestUsage)
	return u
}

// AddEmbeddingTokens records an embedding call. Safe on a nil receiver.
func (u *RequestUsage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.embedded = true
	u.mu.Unlock()
}

// AddGenerationTokens records generation spend. Safe on a nil receiver.
func (u *RequestUsage) AddGenerationTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.generationTokens += n
	u.mu.Unlock()
}

// Snapshot returns embedding tokens, generation tokens and whether an embedding happened.
func (u *RequestUsage) Snapshot() (embedding, generation int, embedded bool) {
	if u == nil {
		return 0, 0, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens, u.generationTokens, u.embedded
}
