package db

import "github.com/kailas-cloud/bookscout/internal/domain/search/filter"

// KNNQuery asks for the K nearest embeddings under an optional pre-filter.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is a keyword search over one TEXT field.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	Filters      filter.Expression
	Limit        int
	ReturnFields []string
}

// SortedQuery lists the whole index ordered by a SORTABLE field.
type SortedQuery struct {
	IndexName    string
	SortBy       string
	Desc         bool
	Limit        int
	ReturnFields []string
}

// SearchResult keeps the server's ordering. Total counts all matches, not
// just the returned page.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Score is the cosine distance for KNN hits (lower
// is closer), the relevance score for text hits and zero for sorted listings.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
