// Package result is the composed outcome of a search or recommendation.
package result

import (
	"github.com/kailas-cloud/bookscout/internal/domain/book"
	"github.com/kailas-cloud/bookscout/internal/domain/search/mode"
)

// Result is a ranked list of books plus how it was produced.
type Result struct {
	books         []book.Book
	query         string
	enhancedQuery string
	mode          mode.Mode
}

// New creates a search result. A nil book list is normalized to empty.
func New(books []book.Book, query, enhancedQuery string, m mode.Mode) Result {
	if books == nil {
		books = []book.Book{}
	}
	if enhancedQuery == query {
		enhancedQuery = ""
	}
	return Result{books: books, query: query, enhancedQuery: enhancedQuery, mode: m}
}

// Books returns the ranked books.
func (r *Result) Books() []book.Book { return r.books }

// Total returns the number of books returned.
func (r *Result) Total() int { return len(r.books) }

// Query returns the query as the caller sent it (trimmed).
func (r *Result) Query() string { return r.query }

// EnhancedQuery returns the rewritten query, or "" when enhancement did not change it.
func (r *Result) EnhancedQuery() string { return r.enhancedQuery }

// Mode returns the path that produced the books.
func (r *Result) Mode() mode.Mode { return r.mode }

// Fallback reports whether a degraded path served the result.
func (r *Result) Fallback() bool { return r.mode.IsFallback() }

// Message returns the fallback note, "" for the primary path.
func (r *Result) Message() string { return r.mode.Message() }
