package price

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

func TestNewLookup(t *testing.T) {
	l, err := NewLookup(7, "  The Hobbit ", " J.R.R. Tolkien", "978-0-547-92822-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Title() != "The Hobbit" || l.Author() != "J.R.R. Tolkien" {
		t.Errorf("fields not trimmed: %+v", l)
	}
	if l.ISBN() != "9780547928227" {
		t.Errorf("ISBN() = %q", l.ISBN())
	}
}

func TestNewLookup_ISBN10WithX(t *testing.T) {
	l, err := NewLookup(1, "T", "A", "0-8044-2957-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ISBN() != "080442957X" {
		t.Errorf("ISBN() = %q", l.ISBN())
	}
}

func TestNewLookup_Invalid(t *testing.T) {
	tests := []struct {
		name                string
		id                  int64
		title, author, isbn string
	}{
		{"zero id", 0, "T", "A", ""},
		{"empty title", 1, " ", "A", ""},
		{"empty author", 1, "T", "", ""},
		{"short isbn", 1, "T", "A", "12345"},
		{"letters in isbn", 1, "T", "A", "97805479282ZZ"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLookup(tc.id, tc.title, tc.author, tc.isbn); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCacheEntry_Result(t *testing.T) {
	r := CacheEntry{BookID: 3, Summary: "s"}.Result()
	if !r.Cached {
		t.Error("cached entries must be flagged")
	}
	if r.Offers == nil || r.Sources == nil || r.SearchQueries == nil {
		t.Error("lists must be non-nil for stable JSON")
	}
}

func TestEmpty(t *testing.T) {
	r := Empty("No prices found.")
	if r.Cached || len(r.Offers) != 0 || r.Offers == nil || r.Summary == "" {
		t.Errorf("unexpected empty result %+v", r)
	}
}
