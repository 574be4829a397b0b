package chi

import (
	"time"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/book"
	domprice "github.com/kailas-cloud/bookscout/internal/domain/price"
	"github.com/kailas-cloud/bookscout/internal/domain/search/request"
	"github.com/kailas-cloud/bookscout/internal/domain/search/result"
	domusage "github.com/kailas-cloud/bookscout/internal/domain/usage"
)

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query          string   `json:"query"`
	Limit          *int     `json:"limit,omitempty"`
	CategoryFilter string   `json:"category_filter,omitempty"`
	MinRating      *float64 `json:"min_rating,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	MinYear        *int     `json:"min_year,omitempty"`
	MaxYear        *int     `json:"max_year,omitempty"`
	MinPages       *int     `json:"min_pages,omitempty"`
	MaxPages       *int     `json:"max_pages,omitempty"`
	ReadingLevel   string   `json:"reading_level,omitempty"`
}

func (r *SearchRequest) params() request.Params {
	return request.Params{
		Query:        r.Query,
		Limit:        derefInt(r.Limit),
		Category:     r.CategoryFilter,
		MinRating:    r.MinRating,
		Genres:       r.Genres,
		MinYear:      r.MinYear,
		MaxYear:      r.MaxYear,
		MinPages:     r.MinPages,
		MaxPages:     r.MaxPages,
		ReadingLevel: r.ReadingLevel,
	}
}

// Book is the wire form of a catalog record.
type Book struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	Genres        []string `json:"genres,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	PreviewURL    string   `json:"preview_url,omitempty"`
	RatingAvg     float64  `json:"rating_avg"`
	RatingCount   int64    `json:"rating_count"`
	PageCount     *int     `json:"page_count,omitempty"`
	PublishedYear *int     `json:"published_year,omitempty"`
	ReadingLevel  string   `json:"reading_level,omitempty"`
	Distance      *float64 `json:"distance,omitempty"`
	Similarity    *float64 `json:"similarity,omitempty"`
}

// SearchResponse is the body returned by POST /api/v1/search.
type SearchResponse struct {
	Results       []Book `json:"results"`
	Total         int    `json:"total"`
	Query         string `json:"query"`
	EnhancedQuery string `json:"enhanced_query,omitempty"`
	Mode          string `json:"mode"`
	Fallback      bool   `json:"fallback,omitempty"`
	Message       string `json:"message,omitempty"`
}

// RecommendRequest is the body of POST /api/v1/recommendations.
type RecommendRequest struct {
	BookID    int64 `json:"book_id"`
	Limit     *int  `json:"limit,omitempty"`
	SameGenre *bool `json:"same_genre,omitempty"`
}

// RecommendResponse lists the neighbors of a book.
type RecommendResponse struct {
	BookID  int64  `json:"book_id"`
	Results []Book `json:"results"`
	Total   int    `json:"total"`
}

// PriceRequest is the body of POST /api/v1/books/{id}/prices.
type PriceRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn,omitempty"`
}

// Offer is one retailer price.
type Offer struct {
	Retailer string  `json:"retailer"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
	URL      string  `json:"url"`
}

// Citation is a grounding source.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// PriceResponse is the body returned by the price endpoint.
type PriceResponse struct {
	Summary       string     `json:"summary"`
	Prices        []Offer    `json:"prices"`
	Sources       []Citation `json:"sources"`
	SearchQueries []string   `json:"searchQueries"`
	Cached        bool       `json:"cached"`
	LastFetched   *time.Time `json:"lastFetched,omitempty"`
}

// UsageBudget is one token budget in a usage report.
type UsageBudget struct {
	Name            string     `json:"name"`
	TokensLimit     int64      `json:"tokens_limit"`
	TokensUsed      int64      `json:"tokens_used"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the body returned by GET /api/v1/usage.
type UsageResponse struct {
	Period        string        `json:"period"`
	PeriodStartAt *time.Time    `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time    `json:"period_end_at,omitempty"`
	Budgets       []UsageBudget `json:"budgets"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func bookFrom(b *book.Book) Book {
	return Book{
		ID:            b.ID,
		Title:         b.Title,
		Description:   b.Description,
		Authors:       nonNil(b.Authors),
		Categories:    nonNil(b.Categories),
		Genres:        b.Genres,
		ISBN:          b.ISBN,
		ImageURL:      b.ImageURL,
		PreviewURL:    b.PreviewURL,
		RatingAvg:     b.RatingAvg,
		RatingCount:   b.RatingCount,
		PageCount:     b.PageCount,
		PublishedYear: b.PublishedYear,
		ReadingLevel:  string(b.ReadingLevel),
		Distance:      b.Distance,
		Similarity:    b.Similarity(),
	}
}

func booksFrom(books []book.Book) []Book {
	out := make([]Book, len(books))
	for i := range books {
		out[i] = bookFrom(&books[i])
	}
	return out
}

func searchResponseFrom(r *result.Result) SearchResponse {
	return SearchResponse{
		Results:       booksFrom(r.Books()),
		Total:         r.Total(),
		Query:         r.Query(),
		EnhancedQuery: r.EnhancedQuery(),
		Mode:          string(r.Mode()),
		Fallback:      r.Fallback(),
		Message:       r.Message(),
	}
}

func priceResponseFrom(r *domprice.Result) PriceResponse {
	offers := make([]Offer, len(r.Offers))
	for i, o := range r.Offers {
		offers[i] = Offer{Retailer: o.Retailer, Price: o.Price, Type: string(o.Condition), URL: o.URL}
	}
	resp := PriceResponse{
		Summary:       r.Summary,
		Prices:        offers,
		Sources:       citationsFrom(r.Sources),
		SearchQueries: nonNil(r.SearchQueries),
		Cached:        r.Cached,
	}
	if !r.LastFetched.IsZero() {
		t := r.LastFetched.UTC()
		resp.LastFetched = &t
	}
	return resp
}

func citationsFrom(cs []domain.Citation) []Citation {
	out := make([]Citation, len(cs))
	for i, c := range cs {
		out[i] = Citation{URL: c.URL, Title: c.Title}
	}
	return out
}

func usageResponseFrom(r *domusage.Report) UsageResponse {
	resp := UsageResponse{
		Period:  string(r.Period),
		Budgets: make([]UsageBudget, len(r.Budgets)),
	}
	if r.PeriodStart > 0 {
		resp.PeriodStartAt = millisPtr(r.PeriodStart)
		resp.PeriodEndAt = millisPtr(r.PeriodEnd)
	}
	for i, b := range r.Budgets {
		ub := UsageBudget{
			Name:            b.Name,
			TokensLimit:     b.TokensLimit,
			TokensUsed:      b.TokensUsed,
			TokensRemaining: b.TokensRemaining,
			IsExhausted:     b.Exhausted(),
		}
		if b.ResetsAt > 0 {
			ub.ResetsAt = millisPtr(b.ResetsAt)
		}
		resp.Budgets[i] = ub
	}
	return resp
}

func millisPtr(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
