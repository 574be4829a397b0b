package book

import (
	"context"

	"github.com/kailas-cloud/bookscout/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	textSearch     bool
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTextFn   func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchSortedFn func(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error)
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool { return m.textSearch }

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error) {
	if m.searchSortedFn != nil {
		return m.searchSortedFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testConfig() Config {
	return Config{
		KeyPrefix:       "bookscout:",
		IndexName:       "books:idx",
		Dimensions:      3,
		HNSWM:           16,
		HNSWEFConstruct: 200,
	}
}
