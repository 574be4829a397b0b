// Package db defines the storage contract shared by the catalog, the price
// cache, the embedding cache and the budget counters. Consumers declare
// narrower interfaces over Store.
package db

import (
	"context"
	"time"
)

// Store is everything the redis/valkey client provides.
//
//nolint:interfacebloat // wiring facade; consumers take narrow subsets
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger is used by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore reads book hashes and lets the price cache sweep its keys.
type HashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore holds cached embeddings, cached price envelopes and token counters.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	// ExpireNX sets a TTL only on keys that have none, so repeated
	// increments never push a counter's expiry forward.
	ExpireNX(ctx context.Context, key string, ttl time.Duration) error
}

// IndexManager creates the catalog index at startup.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher runs the three catalog query shapes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchSorted(ctx context.Context, q *SortedQuery) (*SearchResult, error)
}
