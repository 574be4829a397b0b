package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/book"
	"github.com/kailas-cloud/bookscout/internal/domain/search/filter"
	"github.com/kailas-cloud/bookscout/internal/domain/search/mode"
	"github.com/kailas-cloud/bookscout/internal/domain/search/request"
	"github.com/kailas-cloud/bookscout/internal/domain/search/result"
	"github.com/kailas-cloud/bookscout/internal/metrics"
	"github.com/kailas-cloud/bookscout/internal/usecase/retry"
)

// DefaultCandidateMultiplier over-fetches kNN candidates so in-core filters
// can drop some without starving the limit.
const DefaultCandidateMultiplier = 3

// DefaultMaxCandidates caps the widened kNN window.
const DefaultMaxCandidates = 1000

// Options tune ranking.
type Options struct {
	CandidateMultiplier int
	// MaxCandidates bounds how far the candidate window doubles while
	// in-core filters leave fewer than limit survivors.
	MaxCandidates int
	TieEpsilon    float64
}

// Service handles semantic search, its fallback chain, and recommendations.
type Service struct {
	repo   Repository
	embed  Embedder
	enh    Enhancer
	exec   *retry.Executor
	opts   Options
	logger *zap.Logger
}

// New creates a search service. enh may be nil.
func New(repo Repository, embed Embedder, enh Enhancer, exec *retry.Executor, opts Options, logger *zap.Logger) *Service {
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.TieEpsilon <= 0 {
		opts.TieEpsilon = DefaultTieEpsilon
	}
	return &Service{repo: repo, embed: embed, enh: enh, exec: exec, opts: opts, logger: logger}
}

// Search runs the semantic path and degrades to title search, then to a
// popularity listing, then to an empty list. It never returns a provider or
// store error; only request validation happens before this point.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Result, error) {
	query := req.Query()
	enhanced := query
	if s.enh != nil {
		enhanced = s.enh.Enhance(ctx, query)
	}

	expr, err := req.Filters().Expression()
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	books, err := s.searchSemantic(ctx, enhanced, expr, req)
	if err == nil {
		return result.New(books, query, enhanced, mode.Semantic), nil
	}
	s.logger.Warn("Semantic search failed, falling back to title search", zap.Error(err))

	books, err = s.searchLexical(ctx, query, expr, req)
	if err == nil {
		metrics.SearchFallbacksTotal.WithLabelValues("lexical").Inc()
		return result.New(books, query, enhanced, mode.Lexical), nil
	}
	s.logger.Warn("Title search failed, falling back to popular books", zap.Error(err))

	books, err = s.repo.ListPopular(ctx, req.Limit())
	if err == nil {
		metrics.SearchFallbacksTotal.WithLabelValues("popular").Inc()
		return result.New(books, query, enhanced, mode.Popular), nil
	}
	s.logger.Error("Every search path failed", zap.Error(err))

	metrics.SearchFallbacksTotal.WithLabelValues("empty").Inc()
	return result.New(nil, query, enhanced, mode.None), nil
}

// searchSemantic embeds the query and runs KNN with the indexed pre-filter.
func (s *Service) searchSemantic(
	ctx context.Context, text string, expr filter.Expression, req *request.Request,
) ([]book.Book, error) {
	embResult, err := retry.Value(ctx, s.exec, "embedding", func(ctx context.Context) (domain.EmbeddingResult, error) {
		return s.embed.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if err := domain.CheckDimensions(embResult.Embedding, s.repo.Dimensions()); err != nil {
		return nil, err
	}

	hits, err := s.collect(req, func(k int) ([]book.Book, error) {
		return s.repo.SearchSimilar(ctx, embResult.Embedding, expr, k)
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	rankByDistance(hits, s.opts.TieEpsilon)
	return truncate(hits, req.Limit()), nil
}

// searchLexical runs a title search with the original query text.
func (s *Service) searchLexical(
	ctx context.Context, text string, expr filter.Expression, req *request.Request,
) ([]book.Book, error) {
	hits, err := s.collect(req, func(k int) ([]book.Book, error) {
		return s.repo.SearchTitle(ctx, text, expr, k)
	})
	if err != nil {
		return nil, fmt.Errorf("search title: %w", err)
	}
	return truncate(hits, req.Limit()), nil
}

// collect fetches candidates and applies the in-core filters, doubling k
// until limit books survive, the store runs out, or MaxCandidates is hit.
// Category substring has no index form, so matches can sit arbitrarily far
// down the neighbour list.
func (s *Service) collect(req *request.Request, fetch func(k int) ([]book.Book, error)) ([]book.Book, error) {
	limit := req.Limit()
	k := min(limit*s.opts.CandidateMultiplier, max(s.opts.MaxCandidates, limit))
	for {
		hits, err := fetch(k)
		if err != nil {
			return nil, err
		}
		exhausted := len(hits) < k
		hits = keep(hits, req.Filters().Match)
		if len(hits) >= limit || exhausted || k >= s.opts.MaxCandidates {
			return hits, nil
		}
		k = min(k*2, s.opts.MaxCandidates)
	}
}

// Recommend returns the nearest neighbors of a stored book, excluding the book itself.
func (s *Service) Recommend(ctx context.Context, req *request.Recommend) ([]book.Book, error) {
	src, vec, err := s.repo.Get(ctx, req.BookID())
	if err != nil {
		return nil, fmt.Errorf("get source book: %w", err)
	}
	if err := domain.CheckDimensions(vec, s.repo.Dimensions()); err != nil {
		return nil, fmt.Errorf("source book %d: %w", src.ID, err)
	}

	var expr filter.Expression
	sameGenre := req.SameGenre() && len(src.Genres) > 0
	if sameGenre {
		cond, err := filter.NewAnyOf(book.FieldGenres, src.Genres...)
		if err != nil {
			return nil, fmt.Errorf("genre filter: %w", err)
		}
		if expr, err = filter.All(cond); err != nil {
			return nil, fmt.Errorf("genre filter: %w", err)
		}
	}

	hits, err := s.repo.SearchSimilar(ctx, vec, expr, req.Limit()+1)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	hits = keep(hits, func(b book.Book) bool {
		if b.ID == src.ID {
			return false
		}
		return !sameGenre || b.HasAnyGenre(src.Genres)
	})
	rankByDistance(hits, s.opts.TieEpsilon)
	return truncate(hits, req.Limit()), nil
}

// GetBook returns one book record.
func (s *Service) GetBook(ctx context.Context, id int64) (book.Book, error) {
	if id <= 0 {
		return book.Book{}, domain.NewValidationError("id", "must be a positive integer")
	}
	b, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return book.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func keep(books []book.Book, pred func(book.Book) bool) []book.Book {
	out := books[:0]
	for _, b := range books {
		if pred(b) {
			out = append(out, b)
		}
	}
	return out
}

func truncate(books []book.Book, n int) []book.Book {
	if len(books) > n {
		return books[:n]
	}
	return books
}
