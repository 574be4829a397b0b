// Package book holds the read-only book record served by search, recommendations and lookup.
package book

import "strings"

// ReadingLevel is the coarse difficulty bucket assigned at ingestion.
type ReadingLevel string

// Reading levels.
const (
	LevelBeginner     ReadingLevel = "beginner"
	LevelIntermediate ReadingLevel = "intermediate"
	LevelAdvanced     ReadingLevel = "advanced"
)

// IsValid reports whether l is one of the known levels.
func (l ReadingLevel) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Book is a catalog record. The metadata store owns it; the service only reads.
type Book struct {
	ID            int64
	Title         string
	Description   string
	Authors       []string
	Categories    []string
	Genres        []string
	ISBN          string
	ImageURL      string
	PreviewURL    string
	RatingAvg     float64
	RatingCount   int64
	PageCount     *int
	PublishedYear *int
	ReadingLevel  ReadingLevel

	// Distance is the cosine distance to the query; set only on similarity hits.
	Distance *float64
}

// Similarity returns 1 - distance, or nil when the book did not come from a vector query.
func (b Book) Similarity() *float64 {
	if b.Distance == nil {
		return nil
	}
	s := 1 - *b.Distance
	return &s
}

// HasCategory reports whether any category contains sub, case-insensitively.
func (b Book) HasCategory(sub string) bool {
	sub = strings.ToLower(sub)
	for _, c := range b.Categories {
		if strings.Contains(strings.ToLower(c), sub) {
			return true
		}
	}
	return false
}

// HasAnyGenre reports whether the book carries at least one of the genres (case-insensitive).
func (b Book) HasAnyGenre(genres []string) bool {
	for _, want := range genres {
		for _, g := range b.Genres {
			if strings.EqualFold(g, want) {
				return true
			}
		}
	}
	return false
}

// PrimaryAuthor returns the first listed author or "".
func (b Book) PrimaryAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}
