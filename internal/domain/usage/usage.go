// Package usage describes token consumption against the configured budgets.
package usage

import "github.com/kailas-cloud/bookscout/internal/domain"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod validates a period name. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodMonth, PeriodTotal:
		return p, nil
	default:
		return "", domain.NewValidationError("period", "must be day, month or total, got %q", s)
	}
}

// Budget is one named token budget within a period. A zero limit means
// unlimited, in which case TokensRemaining is -1.
type Budget struct {
	Name            string
	TokensLimit     int64
	TokensUsed      int64
	TokensRemaining int64
	ResetsAt        int64 // unix millis, 0 when the period has no end
}

// Exhausted reports whether a limited budget has nothing left.
func (b Budget) Exhausted() bool { return b.TokensLimit > 0 && b.TokensRemaining <= 0 }

// Report lists every budget for a period.
type Report struct {
	Period      Period
	PeriodStart int64 // unix millis
	PeriodEnd   int64
	Budgets     []Budget
}
