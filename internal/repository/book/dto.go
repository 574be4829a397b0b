package book

import (
	"strconv"
	"strings"

	dombook "github.com/kailas-cloud/bookscout/internal/domain/book"
)

// returnFields lists every stored attribute except the embedding blob.
var returnFields = []string{
	dombook.FieldTitle,
	dombook.FieldDescription,
	dombook.FieldAuthors,
	dombook.FieldCategories,
	dombook.FieldGenres,
	dombook.FieldReadingLevel,
	dombook.FieldRatingAvg,
	dombook.FieldRatingCount,
	dombook.FieldPageCount,
	dombook.FieldPublishedYear,
	dombook.FieldISBN,
	dombook.FieldImageURL,
	dombook.FieldPreviewURL,
}

// parseHashFields rebuilds a book from stored fields. Unparseable numerics read as unset.
func parseHashFields(id int64, m map[string]string) dombook.Book {
	b := dombook.Book{
		ID:           id,
		Title:        m[dombook.FieldTitle],
		Description:  m[dombook.FieldDescription],
		Authors:      splitList(m[dombook.FieldAuthors]),
		Categories:   splitList(m[dombook.FieldCategories]),
		Genres:       splitList(m[dombook.FieldGenres]),
		ReadingLevel: dombook.ReadingLevel(strings.ToLower(m[dombook.FieldReadingLevel])),
		ISBN:         m[dombook.FieldISBN],
		ImageURL:     m[dombook.FieldImageURL],
		PreviewURL:   m[dombook.FieldPreviewURL],
	}

	if v, err := strconv.ParseFloat(m[dombook.FieldRatingAvg], 64); err == nil {
		b.RatingAvg = v
	}
	if v, err := strconv.ParseFloat(m[dombook.FieldRatingCount], 64); err == nil {
		b.RatingCount = int64(v)
	}
	b.PageCount = parseOptionalInt(m[dombook.FieldPageCount])
	b.PublishedYear = parseOptionalInt(m[dombook.FieldPublishedYear])

	return b
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int(f)
	return &v
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, dombook.ListSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
