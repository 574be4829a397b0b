// Package request validates and normalizes search and recommendation input.
package request

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in characters.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 200

	DefaultRecommendLimit = 10
	MaxRecommendLimit     = 50
)

// Limits bounds the result count of a search.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the stock search limits.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Params is the raw, unvalidated search input.
type Params struct {
	Query        string
	Limit        int
	Category     string
	MinRating    *float64
	Genres       []string
	MinYear      *int
	MaxYear      *int
	MinPages     *int
	MaxPages     *int
	ReadingLevel string
}

// Request is a validated search query.
type Request struct {
	query   string
	limit   int
	filters Filters
}

// New validates and normalizes search parameters.
// Limit 0 takes the default, anything above the max is capped.
func New(p Params, lim Limits) (Request, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return Request{}, domain.NewValidationError("query", "must not be empty")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, domain.NewValidationError("query", "too long (max %d chars)", MaxQueryLength)
	}

	limit, err := clampLimit(p.Limit, lim)
	if err != nil {
		return Request{}, err
	}

	filters, err := newFilters(p)
	if err != nil {
		return Request{}, err
	}

	return Request{query: query, limit: limit, filters: filters}, nil
}

func clampLimit(limit int, lim Limits) (int, error) {
	if limit < 0 {
		return 0, domain.NewValidationError("limit", "must be positive, got %d", limit)
	}
	if limit == 0 {
		limit = lim.Default
	}
	if limit > lim.Max {
		limit = lim.Max
	}
	return limit, nil
}

// Query returns the trimmed search text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Filters returns the normalized filter predicates.
func (r *Request) Filters() Filters { return r.filters }
