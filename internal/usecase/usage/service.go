package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/bookscout/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	readers []BudgetReader
	now     func() time.Time
}

// New creates a Service over the given budgets. Nil readers are skipped.
func New(readers ...BudgetReader) *Service {
	s := &Service{now: time.Now}
	for _, r := range readers {
		if r != nil {
			s.readers = append(s.readers, r)
		}
	}
	return s
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	var start, end int64

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
	}

	budgets := make([]domusage.Budget, 0, len(s.readers))
	for _, r := range s.readers {
		b := domusage.Budget{Name: r.Name(), ResetsAt: end}
		if period == domusage.PeriodDay {
			b.TokensLimit, b.TokensUsed, b.TokensRemaining = r.DailyLimit(), r.DailyUsed(), r.RemainingDaily()
		} else {
			// total has no period boundaries; the monthly window is the widest tracked
			b.TokensLimit, b.TokensUsed, b.TokensRemaining = r.MonthlyLimit(), r.MonthlyUsed(), r.RemainingMonthly()
		}
		budgets = append(budgets, b)
	}

	return domusage.Report{Period: period, PeriodStart: start, PeriodEnd: end, Budgets: budgets}
}
