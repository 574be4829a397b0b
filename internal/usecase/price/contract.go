package price

import (
	"context"
	"time"

	domprice "github.com/kailas-cloud/bookscout/internal/domain/price"
)

// Cache stores one validated price result per book.
type Cache interface {
	Get(ctx context.Context, bookID int64) (domprice.CacheEntry, bool, error)
	Put(ctx context.Context, e domprice.CacheEntry) error
}

// Sweepable removes cache entries fetched before cutoff.
type Sweepable interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
