// Package chi exposes the book discovery API over HTTP.
package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain/book"
	domprice "github.com/kailas-cloud/bookscout/internal/domain/price"
	"github.com/kailas-cloud/bookscout/internal/domain/search/request"
	"github.com/kailas-cloud/bookscout/internal/domain/search/result"
	domusage "github.com/kailas-cloud/bookscout/internal/domain/usage"
	healthuc "github.com/kailas-cloud/bookscout/internal/usecase/health"
)

// maxBodyBytes caps request bodies; every endpoint takes a small JSON object.
const maxBodyBytes = 1 << 20

// SearchService serves search, recommendations and book lookup.
type SearchService interface {
	Search(ctx context.Context, req *request.Request) (result.Result, error)
	Recommend(ctx context.Context, req *request.Recommend) ([]book.Book, error)
	GetBook(ctx context.Context, id int64) (book.Book, error)
}

// PriceService serves retailer price lookups.
type PriceService interface {
	GetPrices(ctx context.Context, l domprice.Lookup) (domprice.Result, error)
}

// UsageService reports token budgets.
type UsageService interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthService aggregates dependency checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search        SearchService
	prices        PriceService
	usage         UsageService
	health        HealthService
	limits        request.Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search SearchService,
	prices PriceService,
	usage UsageService,
	health HealthService,
	limits request.Limits,
	logger *zap.Logger,
) *Server {
	if limits.Default <= 0 || limits.Max <= 0 {
		limits = request.DefaultLimits()
	}
	return &Server{
		search:        search,
		prices:        prices,
		usage:         usage,
		health:        health,
		limits:        limits,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/recommendations", s.Recommend)
		r.Get("/books/{id}", s.GetBook)
		r.Post("/books/{id}/prices", s.GetPrices)
		r.Get("/usage", s.GetUsage)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
