package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	domprice "github.com/kailas-cloud/bookscout/internal/domain/price"
	"github.com/kailas-cloud/bookscout/internal/domain/search/request"
	domusage "github.com/kailas-cloud/bookscout/internal/domain/usage"
	"github.com/kailas-cloud/bookscout/internal/logger"
	healthuc "github.com/kailas-cloud/bookscout/internal/usecase/health"
	"github.com/kailas-cloud/bookscout/internal/version"
)

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := request.New(body.params(), s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponseFrom(&res))
}

// Recommend handles POST /api/v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var body RecommendRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := request.NewRecommend(body.BookID, derefInt(body.Limit), derefBool(body.SameGenre))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	books, err := s.search.Recommend(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RecommendResponse{
		BookID:  req.BookID(),
		Results: booksFrom(books),
		Total:   len(books),
	})
}

// GetBook handles GET /api/v1/books/{id}.
func (s *Server) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	b, err := s.search.GetBook(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookFrom(&b))
}

// GetPrices handles POST /api/v1/books/{id}/prices. Missing title, author or
// ISBN is completed from the catalog record; only title and author are required.
func (s *Server) GetPrices(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var body PriceRequest
	if !s.decode(w, r, &body) {
		return
	}

	if body.Title == "" || body.Author == "" || body.ISBN == "" {
		b, err := s.search.GetBook(r.Context(), id)
		switch {
		case err == nil:
			if body.Title == "" {
				body.Title = b.Title
			}
			if body.Author == "" {
				body.Author = b.PrimaryAuthor()
			}
			if body.ISBN == "" {
				body.ISBN = b.ISBN
			}
		case body.Title == "" || body.Author == "":
			s.handleDomainError(w, r, err)
			return
		default:
			logger.FromContext(r.Context()).Debug("ISBN fill skipped", zap.Int64("book_id", id), zap.Error(err))
		}
	}

	lookup, err := domprice.NewLookup(id, body.Title, body.Author, body.ISBN)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(logger.With(r.Context(), zap.Int64("book_id", id)))
	res, err := s.prices.GetPrices(ctx, lookup)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, priceResponseFrom(&res))
}

// GetUsage handles GET /api/v1/usage?period=day|month|total.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageResponseFrom(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.String(),
		Checks:  checks,
	})
}

// decode reads a JSON body. An empty body decodes as the zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func bookIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer, got %q", raw)
	}
	return id, nil
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	emb, gen, embedded := usage.Snapshot()
	if embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(emb))
	}
	if gen > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(gen))
	}
}
