package search

import (
	"context"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/book"
	"github.com/kailas-cloud/bookscout/internal/domain/search/filter"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchSimilar(ctx context.Context, vector []float32, expr filter.Expression, k int) ([]book.Book, error)
	SearchTitle(ctx context.Context, text string, expr filter.Expression, k int) ([]book.Book, error)
	ListPopular(ctx context.Context, k int) ([]book.Book, error)
	Get(ctx context.Context, id int64) (book.Book, []float32, error)
	Dimensions() int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Enhancer rewrites a query; it returns the input unchanged on any failure.
type Enhancer interface {
	Enhance(ctx context.Context, query string) string
}
