package price

import (
	"time"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

// Result is the composed price lookup envelope.
type Result struct {
	Summary       string
	Offers        []Offer
	Sources       []domain.Citation
	SearchQueries []string
	Cached        bool
	LastFetched   time.Time // zero for an uncached empty result
}

// Empty returns a well-formed result with no offers and an explanation.
func Empty(summary string) Result {
	return Result{
		Summary:       summary,
		Offers:        []Offer{},
		Sources:       []domain.Citation{},
		SearchQueries: []string{},
	}
}

// CacheEntry is the stored form of a successful lookup, one per book.
type CacheEntry struct {
	BookID        int64
	Summary       string
	Offers        []Offer
	Sources       []domain.Citation
	SearchQueries []string
	LastFetched   time.Time
}

// Result turns a cache entry into a cached response.
func (e CacheEntry) Result() Result {
	return Result{
		Summary:       e.Summary,
		Offers:        nonNil(e.Offers),
		Sources:       nonNil(e.Sources),
		SearchQueries: nonNil(e.SearchQueries),
		Cached:        true,
		LastFetched:   e.LastFetched,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
