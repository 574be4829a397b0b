package book

import "testing"

func TestReadingLevel_IsValid(t *testing.T) {
	for _, l := range []ReadingLevel{LevelBeginner, LevelIntermediate, LevelAdvanced} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	for _, l := range []ReadingLevel{"", "expert", "Beginner"} {
		if l.IsValid() {
			t.Errorf("%q should be invalid", l)
		}
	}
}

func TestBook_HasCategory(t *testing.T) {
	b := Book{Categories: []string{"Juvenile Fiction", "Fantasy & Magic"}}

	if !b.HasCategory("fantasy") {
		t.Error("expected case-insensitive substring match")
	}
	if !b.HasCategory("juvenile fic") {
		t.Error("expected partial match")
	}
	if b.HasCategory("history") {
		t.Error("unexpected match")
	}
}

func TestBook_HasAnyGenre(t *testing.T) {
	b := Book{Genres: []string{"Fantasy", "Romance"}}

	if !b.HasAnyGenre([]string{"horror", "romance"}) {
		t.Error("expected any-of match")
	}
	if b.HasAnyGenre([]string{"horror"}) {
		t.Error("unexpected match")
	}
	if b.HasAnyGenre(nil) {
		t.Error("empty set matches nothing")
	}
}

func TestBook_Similarity(t *testing.T) {
	if (Book{}).Similarity() != nil {
		t.Error("expected nil similarity without distance")
	}
	d := 0.25
	if s := (Book{Distance: &d}).Similarity(); s == nil || *s != 0.75 {
		t.Errorf("expected 0.75, got %v", s)
	}
}

func TestBook_PrimaryAuthor(t *testing.T) {
	if got := (Book{Authors: []string{"Ursula K. Le Guin", "Other"}}).PrimaryAuthor(); got != "Ursula K. Le Guin" {
		t.Errorf("got %q", got)
	}
	if got := (Book{}).PrimaryAuthor(); got != "" {
		t.Errorf("got %q", got)
	}
}
