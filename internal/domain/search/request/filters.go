package request

import (
	"strings"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/book"
	"github.com/kailas-cloud/bookscout/internal/domain/search/filter"
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// IntRange is an inclusive range with optional ends. Min <= Max always holds.
type IntRange struct {
	Min *int
	Max *int
}

// IsZero reports whether neither end is set.
func (r IntRange) IsZero() bool { return r.Min == nil && r.Max == nil }

// Contains reports whether v falls inside the range.
func (r IntRange) Contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Filters is the normalized set of search predicates, all applied as a conjunction.
type Filters struct {
	Category     string
	MinRating    *float64
	Genres       []string
	Years        IntRange
	Pages        IntRange
	ReadingLevel book.ReadingLevel
}

// IsEmpty reports whether no predicate is set.
func (f Filters) IsEmpty() bool {
	return f.Category == "" && f.MinRating == nil && len(f.Genres) == 0 &&
		f.Years.IsZero() && f.Pages.IsZero() && f.ReadingLevel == ""
}

func newFilters(p Params) (Filters, error) {
	f := Filters{Category: strings.TrimSpace(p.Category)}

	if p.MinRating != nil {
		if *p.MinRating < 0 || *p.MinRating > MaxRating {
			return Filters{}, domain.NewValidationError("min_rating", "must be between 0 and %.0f", MaxRating)
		}
		r := *p.MinRating
		f.MinRating = &r
	}

	for _, g := range p.Genres {
		if g = strings.TrimSpace(g); g != "" {
			f.Genres = append(f.Genres, g)
		}
	}

	years, err := newIntRange("year", p.MinYear, p.MaxYear)
	if err != nil {
		return Filters{}, err
	}
	f.Years = years

	pages, err := newIntRange("pages", p.MinPages, p.MaxPages)
	if err != nil {
		return Filters{}, err
	}
	f.Pages = pages

	if lvl := strings.ToLower(strings.TrimSpace(p.ReadingLevel)); lvl != "" {
		f.ReadingLevel = book.ReadingLevel(lvl)
		if !f.ReadingLevel.IsValid() {
			return Filters{}, domain.NewValidationError("reading_level",
				"must be one of beginner, intermediate, advanced; got %q", p.ReadingLevel)
		}
	}

	return f, nil
}

// newIntRange copies the bounds and swaps them when inverted.
func newIntRange(name string, lo, hi *int) (IntRange, error) {
	var r IntRange
	if lo != nil {
		if *lo < 0 {
			return IntRange{}, domain.NewValidationError("min_"+name, "must not be negative")
		}
		v := *lo
		r.Min = &v
	}
	if hi != nil {
		if *hi < 0 {
			return IntRange{}, domain.NewValidationError("max_"+name, "must not be negative")
		}
		v := *hi
		r.Max = &v
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r, nil
}

// Match is the in-core predicate applied to every candidate before the limit.
// A range filter excludes books that lack the field.
func (f Filters) Match(b book.Book) bool {
	if f.Category != "" && !b.HasCategory(f.Category) {
		return false
	}
	if f.MinRating != nil && b.RatingAvg < *f.MinRating {
		return false
	}
	if len(f.Genres) > 0 && !b.HasAnyGenre(f.Genres) {
		return false
	}
	if !f.Years.IsZero() && (b.PublishedYear == nil || !f.Years.Contains(*b.PublishedYear)) {
		return false
	}
	if !f.Pages.IsZero() && (b.PageCount == nil || !f.Pages.Contains(*b.PageCount)) {
		return false
	}
	if f.ReadingLevel != "" && b.ReadingLevel != f.ReadingLevel {
		return false
	}
	return true
}

// Expression renders the indexed predicates as a store pre-filter.
// Category substring has no index form and is left to Match.
func (f Filters) Expression() (filter.Expression, error) {
	var must []filter.Condition

	if f.MinRating != nil {
		c, err := filter.NewRange(book.FieldRatingAvg, f.MinRating, nil)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}
	if len(f.Genres) > 0 {
		c, err := filter.NewAnyOf(book.FieldGenres, f.Genres...)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}
	for _, nr := range []struct {
		key string
		r   IntRange
	}{
		{book.FieldPublishedYear, f.Years},
		{book.FieldPageCount, f.Pages},
	} {
		if nr.r.IsZero() {
			continue
		}
		c, err := filter.NewRange(nr.key, toFloat(nr.r.Min), toFloat(nr.r.Max))
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}
	if f.ReadingLevel != "" {
		c, err := filter.NewMatch(book.FieldReadingLevel, string(f.ReadingLevel))
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}

	return filter.All(must...)
}

func toFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
