// Package retry runs upstream calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/metrics"
)

// Policy bounds the retry loop. MaxRetries 2 means at most 3 attempts.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultPolicy is 2s base delay, doubling, two retries.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 2, BaseDelay: 2 * time.Second, Multiplier: 2}
}

// Delay returns the wait before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < n; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// ExhaustedError reports that every attempt failed with a transient error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts failed: %v", e.Op, e.Attempts, e.Last)
}

// Unwrap exposes both the exhaustion sentinel and the last cause.
func (e *ExhaustedError) Unwrap() []error {
	return []error{domain.ErrProviderExhausted, e.Last}
}

// Executor applies one Policy to any number of operations.
type Executor struct {
	policy Policy
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// New creates an Executor.
func New(p Policy, logger *zap.Logger) *Executor {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{policy: p, logger: logger, sleep: sleepCtx}
}

// Policy returns the configured policy.
func (e *Executor) Policy() Policy { return e.policy }

// Do calls fn until it succeeds, fails permanently or the attempts run out.
// Only errors for which domain.IsTransient holds are retried. The context is
// checked before every attempt and during backoff.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	defer func() {
		metrics.ProviderCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	maxAttempts := e.policy.MaxRetries + 1
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.policy.Delay(attempt - 1)
			e.logger.Warn("retrying upstream call",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(last))
			if err := e.sleep(ctx, delay); err != nil {
				metrics.ProviderCallsTotal.WithLabelValues(op, "canceled").Inc()
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		if err := ctx.Err(); err != nil {
			metrics.ProviderCallsTotal.WithLabelValues(op, "canceled").Inc()
			return fmt.Errorf("%s: %w", op, err)
		}

		metrics.ProviderAttemptsTotal.WithLabelValues(op).Inc()
		err := fn(ctx)
		if err == nil {
			outcome := "ok"
			if attempt > 1 {
				outcome = "retried_ok"
			}
			metrics.ProviderCallsTotal.WithLabelValues(op, outcome).Inc()
			return nil
		}
		last = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.ProviderCallsTotal.WithLabelValues(op, "canceled").Inc()
			return err
		}
		if !domain.IsTransient(err) {
			metrics.ProviderCallsTotal.WithLabelValues(op, "permanent").Inc()
			return err
		}
	}

	metrics.ProviderCallsTotal.WithLabelValues(op, "exhausted").Inc()
	return &ExhaustedError{Op: op, Attempts: maxAttempts, Last: last}
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, e *Executor, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
