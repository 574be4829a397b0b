package usage

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
	}{
		{"", PeriodMonth},
		{"day", PeriodDay},
		{"month", PeriodMonth},
		{"total", PeriodTotal},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParsePeriod("week"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestBudget_Exhausted(t *testing.T) {
	if (Budget{TokensLimit: 0, TokensRemaining: 0}).Exhausted() {
		t.Error("unlimited budget is never exhausted")
	}
	if !(Budget{TokensLimit: 100, TokensRemaining: 0}).Exhausted() {
		t.Error("spent budget should be exhausted")
	}
	if (Budget{TokensLimit: 100, TokensRemaining: 1}).Exhausted() {
		t.Error("budget with tokens left is not exhausted")
	}
}
