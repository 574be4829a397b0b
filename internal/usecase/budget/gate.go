package budget

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/bookscout/internal/metrics"
)

// Checker is the view of a budget that provider decorators use.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Admit applies b before an upstream call. A nil Checker admits everything.
func Admit(ctx context.Context, b Checker) error {
	if b == nil {
		return nil
	}
	if err := b.Check(ctx); err != nil {
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

// Spend charges tokens to b after a successful call and publishes what is
// left in each window.
func Spend(b Checker, tokens int) {
	if b == nil || tokens <= 0 {
		return
	}
	b.Record(int64(tokens))
	metrics.BudgetTokensRemaining.WithLabelValues(b.Name(), "daily").Set(float64(b.RemainingDaily()))
	metrics.BudgetTokensRemaining.WithLabelValues(b.Name(), "monthly").Set(float64(b.RemainingMonthly()))
}
