// Package price orchestrates cache-first retail price lookups.
package price

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	domprice "github.com/kailas-cloud/bookscout/internal/domain/price"
	"github.com/kailas-cloud/bookscout/internal/domain/price/extract"
	"github.com/kailas-cloud/bookscout/internal/domain/prompt"
	"github.com/kailas-cloud/bookscout/internal/metrics"
	"github.com/kailas-cloud/bookscout/internal/usecase/retry"
)

// DefaultTimeout bounds one uncached lookup end to end.
const DefaultTimeout = 45 * time.Second

const cacheWriteTimeout = 3 * time.Second

// User-facing summaries for lookups that produced no offers.
const (
	SummaryNoPrices    = "No current prices were found for this book."
	SummaryUnreadable  = "Prices were found but could not be read reliably. Please try again later."
	SummaryUnavailable = "Price search is temporarily unavailable. Please try again later."
	SummaryTimeout     = "Price search took too long. Please try again later."
	SummaryQuota       = "Price search is paused because the usage limit was reached."
)

// Options tune the provider call.
type Options struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Service runs cache read, grounded generation, extraction, validation and cache write.
type Service struct {
	cache     Cache
	gen       domain.Generator
	exec      *retry.Executor
	extractor *extract.Extractor
	validator *domprice.Validator
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a price service.
func New(
	cache Cache, gen domain.Generator, exec *retry.Executor,
	validator *domprice.Validator, opts Options, logger *zap.Logger,
) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{
		cache:     cache,
		gen:       gen,
		exec:      exec,
		extractor: extract.New(),
		validator: validator,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// GetPrices returns cached offers when present, otherwise runs the pipeline.
// Only a malformed lookup is an error; every upstream failure becomes an
// empty result with an explanatory summary.
func (s *Service) GetPrices(ctx context.Context, l domprice.Lookup) (domprice.Result, error) {
	log := s.logger.With(zap.Int64("book_id", l.BookID()))

	entry, ok, err := s.cache.Get(ctx, l.BookID())
	switch {
	case err != nil:
		metrics.PriceCacheTotal.WithLabelValues("read_error").Inc()
		log.Warn("Price cache read failed, treating as miss", zap.Error(err))
	case ok:
		metrics.PriceCacheTotal.WithLabelValues("hit").Inc()
		return entry.Result(), nil
	default:
		metrics.PriceCacheTotal.WithLabelValues("miss").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req := prompt.PriceLookup(l)
	req.MaxTokens = s.opts.MaxTokens
	req.Temperature = s.opts.Temperature

	res, err := retry.Value(ctx, s.exec, "price_search", func(ctx context.Context) (domain.GenerateResult, error) {
		return s.gen.Generate(ctx, req)
	})
	if err != nil {
		log.Warn("Price search failed", zap.Error(err))
		return domprice.Empty(failureSummary(err)), nil
	}

	sources := mergeCitations(res.Citations, extract.HarvestURLs(res.Text))
	queries := res.SearchQueries
	if queries == nil {
		queries = []string{}
	}

	outcome := s.extractor.Extract(extract.Input{Text: res.Text, Citations: sources})
	if !outcome.Found() {
		metrics.ExtractionStrategyTotal.WithLabelValues("none").Inc()
		log.Warn("No price structure in provider output",
			zap.Int("text_len", len(res.Text)), zap.Error(outcome.Err()))
		out := domprice.Empty(SummaryUnreadable)
		out.Sources = sources
		out.SearchQueries = queries
		return out, nil
	}
	metrics.ExtractionStrategyTotal.WithLabelValues(string(outcome.Strategy)).Inc()

	offers, report := s.validator.Filter(outcome.Structure.Candidates)
	for reason, n := range report.Dropped {
		metrics.PriceOffersFilteredTotal.WithLabelValues(reason).Add(float64(n))
	}
	if len(report.Unknown) > 0 {
		log.Info("Offers from retailers outside the known list", zap.Strings("retailers", report.Unknown))
	}
	log.Debug("Price extraction finished",
		zap.String("strategy", string(outcome.Strategy)),
		zap.Int("candidates", len(outcome.Structure.Candidates)),
		zap.Int("offers", len(offers)))

	summary := outcome.Structure.Summary
	if summary == "" {
		summary = defaultSummary(len(offers))
	}

	fresh := domprice.CacheEntry{
		BookID:        l.BookID(),
		Summary:       summary,
		Offers:        offers,
		Sources:       sources,
		SearchQueries: queries,
		LastFetched:   s.now().UTC(),
	}

	if len(offers) > 0 {
		s.store(ctx, log, fresh)
	}

	out := fresh.Result()
	out.Cached = false
	return out, nil
}

// store writes the entry on a context detached from the request deadline.
func (s *Service) store(ctx context.Context, log *zap.Logger, e domprice.CacheEntry) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	if err := s.cache.Put(wctx, e); err != nil {
		metrics.PriceCacheTotal.WithLabelValues("write_error").Inc()
		log.Error("Price cache write failed", zap.Error(err))
		return
	}
	metrics.PriceCacheTotal.WithLabelValues("write").Inc()
}

func failureSummary(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return SummaryTimeout
	case errors.Is(err, domain.ErrBudgetExceeded):
		return SummaryQuota
	default:
		return SummaryUnavailable
	}
}

func defaultSummary(n int) string {
	switch n {
	case 0:
		return SummaryNoPrices
	case 1:
		return "Found 1 offer."
	default:
		return fmt.Sprintf("Found %d offers.", n)
	}
}

func mergeCitations(lists ...[]domain.Citation) []domain.Citation {
	seen := map[string]bool{}
	out := []domain.Citation{}
	for _, list := range lists {
		for _, c := range list {
			if c.URL == "" || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			out = append(out, c)
		}
	}
	return out
}
