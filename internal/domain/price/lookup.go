package price

import (
	"strings"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

// Lookup is a validated price request for one book.
type Lookup struct {
	bookID int64
	title  string
	author string
	isbn   string
}

// NewLookup validates price lookup input. ISBN is optional; hyphens and spaces are stripped.
func NewLookup(bookID int64, title, author, isbn string) (Lookup, error) {
	if bookID <= 0 {
		return Lookup{}, domain.NewValidationError("book_id", "must be a positive integer")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Lookup{}, domain.NewValidationError("title", "must not be empty")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		return Lookup{}, domain.NewValidationError("author", "must not be empty")
	}
	isbn = normalizeISBN(isbn)
	if isbn != "" && !validISBN(isbn) {
		return Lookup{}, domain.NewValidationError("isbn", "must be 10 or 13 digits")
	}
	return Lookup{bookID: bookID, title: title, author: author, isbn: isbn}, nil
}

// BookID returns the cache key.
func (l Lookup) BookID() int64 { return l.bookID }

// Title returns the book title.
func (l Lookup) Title() string { return l.title }

// Author returns the author line.
func (l Lookup) Author() string { return l.author }

// ISBN returns the normalized ISBN or "".
func (l Lookup) ISBN() string { return l.isbn }

func normalizeISBN(s string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s)))
}

func validISBN(s string) bool {
	switch len(s) {
	case 10:
		for i, r := range s {
			if r == 'X' && i == 9 {
				continue
			}
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	case 13:
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	return false
}
