package price

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/metrics"
)

const sweepTimeout = time.Minute

// Sweeper periodically removes price cache entries older than maxAge.
type Sweeper struct {
	cache  Sweepable
	maxAge time.Duration
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper. maxAge 0 disables sweeping.
func NewSweeper(cache Sweepable, maxAge time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cache:  cache,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the sweep with a standard cron spec (e.g. "@hourly").
func (s *Sweeper) Start(schedule string) error {
	if s.maxAge <= 0 {
		s.logger.Info("Price cache sweeping disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("schedule price sweep %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Price cache sweeper started",
		zap.String("schedule", schedule), zap.Duration("max_age", s.maxAge))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("Price cache sweep failed", zap.Error(err))
	}
}

// Sweep deletes entries last fetched before now minus maxAge.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.cache.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("delete entries older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.PriceCacheTotal.WithLabelValues("swept").Add(float64(n))
	s.logger.Info("Price cache swept", zap.Int("removed", n), zap.Time("cutoff", cutoff))
	return n, nil
}
