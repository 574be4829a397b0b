// Package book maps the catalog's FT index and hashes onto domain books.
package book

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/bookscout/internal/db"
	"github.com/kailas-cloud/bookscout/internal/domain"
	dombook "github.com/kailas-cloud/bookscout/internal/domain/book"
	"github.com/kailas-cloud/bookscout/internal/domain/search/filter"
)

// store is the consumer interface for the book catalog (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SupportsTextSearch(ctx context.Context) bool
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error)
}

// Config describes the index layout.
type Config struct {
	KeyPrefix       string
	IndexName       string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements the book catalog used by search, recommendations and lookup.
type Repo struct {
	store     store
	cfg       Config
	keyPrefix string
	indexName string
}

// New creates a book repository.
func New(s store, cfg Config) *Repo {
	return &Repo{
		store:     s,
		cfg:       cfg,
		keyPrefix: cfg.KeyPrefix + "book:",
		indexName: cfg.KeyPrefix + cfg.IndexName,
	}
}

// Dimensions returns the configured vector size of the index.
func (r *Repo) Dimensions() int { return r.cfg.Dimensions }

// EnsureIndex creates the catalog index. An existing index is left as is.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := r.indexDefinition(r.store.SupportsTextSearch(ctx))
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

func (r *Repo) indexDefinition(textSearch bool) (*db.IndexDefinition, error) {
	b := db.NewIndex(r.indexName).Prefix(r.keyPrefix)
	// valkey-search has no TEXT type; title search is unavailable there.
	if textSearch {
		b = b.Text(dombook.FieldTitle)
	}
	return b.
		TagList(dombook.FieldCategories, dombook.ListSeparator).
		TagList(dombook.FieldGenres, dombook.ListSeparator).
		Tag(dombook.FieldReadingLevel).
		Numeric(dombook.FieldRatingAvg).
		NumericSortable(dombook.FieldRatingCount).
		Numeric(dombook.FieldPageCount).
		Numeric(dombook.FieldPublishedYear).
		VectorHNSW(dombook.FieldEmbedding, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruct).
		Build()
}

// Get returns a book with its stored embedding. A book without an embedding
// yields a nil vector.
func (r *Repo) Get(ctx context.Context, id int64) (dombook.Book, []float32, error) {
	key := r.bookKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dombook.Book{}, nil, fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
		}
		return dombook.Book{}, nil, fmt.Errorf("hgetall %s: %w", key, err)
	}

	var vec []float32
	if blob, ok := m[dombook.FieldEmbedding]; ok && blob != "" {
		vec, err = db.DecodeVector([]byte(blob))
		if err != nil {
			return dombook.Book{}, nil, fmt.Errorf("book %d embedding: %w: %w", id, domain.ErrVectorDimMismatch, err)
		}
	}

	return parseHashFields(id, m), vec, nil
}

// SearchSimilar returns up to k books nearest to vector, ascending by cosine distance.
func (r *Repo) SearchSimilar(
	ctx context.Context, vector []float32, filters filter.Expression, k int,
) ([]dombook.Book, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  dombook.FieldEmbedding,
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return r.parseEntries(sr, true), nil
}

// SearchTitle runs a keyword search over titles.
func (r *Repo) SearchTitle(
	ctx context.Context, text string, filters filter.Expression, k int,
) ([]dombook.Book, error) {
	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		Field:        dombook.FieldTitle,
		Query:        text,
		Filters:      filters,
		Limit:        k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search title: %w", err)
	}
	return r.parseEntries(sr, false), nil
}

// ListPopular returns the k most-rated books, ignoring filters.
func (r *Repo) ListPopular(ctx context.Context, k int) ([]dombook.Book, error) {
	sr, err := r.store.SearchSorted(ctx, &db.SortedQuery{
		IndexName:    r.indexName,
		SortBy:       dombook.FieldRatingCount,
		Desc:         true,
		Limit:        k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("list popular: %w", err)
	}
	return r.parseEntries(sr, false), nil
}

// parseEntries keeps result order and skips keys without a numeric id.
func (r *Repo) parseEntries(sr *db.SearchResult, withDistance bool) []dombook.Book {
	if sr == nil {
		return nil
	}
	books := make([]dombook.Book, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id, err := strconv.ParseInt(strings.TrimPrefix(e.Key, r.keyPrefix), 10, 64)
		if err != nil {
			continue
		}
		b := parseHashFields(id, e.Fields)
		if withDistance {
			d := e.Score
			b.Distance = &d
		}
		books = append(books, b)
	}
	return books
}

func (r *Repo) bookKey(id int64) string {
	return r.keyPrefix + strconv.FormatInt(id, 10)
}
