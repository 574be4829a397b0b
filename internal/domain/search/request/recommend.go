package request

import "github.com/kailas-cloud/bookscout/internal/domain"

// Recommend is a validated "more like this book" request.
type Recommend struct {
	bookID    int64
	limit     int
	sameGenre bool
}

// NewRecommend validates recommendation parameters.
func NewRecommend(bookID int64, limit int, sameGenre bool) (Recommend, error) {
	if bookID <= 0 {
		return Recommend{}, domain.NewValidationError("book_id", "must be a positive integer")
	}
	limit, err := clampLimit(limit, Limits{Default: DefaultRecommendLimit, Max: MaxRecommendLimit})
	if err != nil {
		return Recommend{}, err
	}
	return Recommend{bookID: bookID, limit: limit, sameGenre: sameGenre}, nil
}

// BookID returns the seed book.
func (r *Recommend) BookID() int64 { return r.bookID }

// Limit returns the maximum neighbors to return.
func (r *Recommend) Limit() int { return r.limit }

// SameGenre reports whether neighbors must share a genre with the seed.
func (r *Recommend) SameGenre() bool { return r.sameGenre }
