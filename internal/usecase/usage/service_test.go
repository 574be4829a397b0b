package usage

import (
	"context"
	"testing"
	"time"

	domusage "github.com/kailas-cloud/bookscout/internal/domain/usage"
)

// --- Mock ---

type mockBudgetReader struct {
	name             string
	dailyLimit       int64
	monthlyLimit     int64
	dailyUsed        int64
	monthlyUsed      int64
	remainingDaily   int64
	remainingMonthly int64
}

func (m *mockBudgetReader) Name() string            { return m.name }
func (m *mockBudgetReader) DailyLimit() int64       { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64     { return m.monthlyLimit }
func (m *mockBudgetReader) DailyUsed() int64        { return m.dailyUsed }
func (m *mockBudgetReader) MonthlyUsed() int64      { return m.monthlyUsed }
func (m *mockBudgetReader) RemainingDaily() int64   { return m.remainingDaily }
func (m *mockBudgetReader) RemainingMonthly() int64 { return m.remainingMonthly }

var reportNow = time.Date(2026, 2, 14, 15, 30, 0, 0, time.UTC)

func newTestService(readers ...BudgetReader) *Service {
	s := New(readers...)
	s.now = func() time.Time { return reportNow }
	return s
}

// --- Tests ---

func TestGetReport_DailyPeriod(t *testing.T) {
	br := &mockBudgetReader{
		name:             "embedding",
		dailyLimit:       10000,
		dailyUsed:        3000,
		remainingDaily:   7000,
		monthlyLimit:     100000,
		monthlyUsed:      50000,
		remainingMonthly: 50000,
	}
	r := newTestService(br).GetReport(context.Background(), domusage.PeriodDay)

	if r.Period != domusage.PeriodDay {
		t.Errorf("expected period %q, got %q", domusage.PeriodDay, r.Period)
	}
	dayStart := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart != dayStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", dayStart.UnixMilli(), r.PeriodStart)
	}
	if r.PeriodEnd != dayStart.Add(24*time.Hour).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd)
	}

	if len(r.Budgets) != 1 {
		t.Fatalf("budgets = %d, want 1", len(r.Budgets))
	}
	b := r.Budgets[0]
	if b.Name != "embedding" || b.TokensLimit != 10000 || b.TokensUsed != 3000 || b.TokensRemaining != 7000 {
		t.Errorf("budget = %+v", b)
	}
	if b.Exhausted() {
		t.Error("budget should not be exhausted")
	}
	if b.ResetsAt != r.PeriodEnd {
		t.Errorf("ResetsAt = %d, want period end", b.ResetsAt)
	}
}

func TestGetReport_MonthlyPeriod(t *testing.T) {
	br := &mockBudgetReader{name: "generation", monthlyLimit: 100000, monthlyUsed: 80000, remainingMonthly: 20000}
	r := newTestService(br).GetReport(context.Background(), domusage.PeriodMonth)

	monthStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart != monthStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", monthStart.UnixMilli(), r.PeriodStart)
	}
	if r.PeriodEnd != time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd)
	}
	if r.Budgets[0].TokensUsed != 80000 {
		t.Errorf("used = %d", r.Budgets[0].TokensUsed)
	}
}

func TestGetReport_TotalPeriod(t *testing.T) {
	br := &mockBudgetReader{name: "generation", monthlyLimit: 100000, monthlyUsed: 100000}
	r := newTestService(br).GetReport(context.Background(), domusage.PeriodTotal)

	if r.PeriodStart != 0 || r.PeriodEnd != 0 {
		t.Errorf("total period must have no boundaries, got %d..%d", r.PeriodStart, r.PeriodEnd)
	}
	if !r.Budgets[0].Exhausted() {
		t.Error("budget should be exhausted")
	}
}

func TestGetReport_MultipleBudgets(t *testing.T) {
	r := newTestService(
		&mockBudgetReader{name: "embedding", remainingDaily: -1},
		nil,
		&mockBudgetReader{name: "generation", dailyLimit: 5000, dailyUsed: 5000},
	).GetReport(context.Background(), domusage.PeriodDay)

	if len(r.Budgets) != 2 {
		t.Fatalf("budgets = %d, want 2", len(r.Budgets))
	}
	if r.Budgets[0].Exhausted() {
		t.Error("unlimited embedding budget should not be exhausted")
	}
	if !r.Budgets[1].Exhausted() {
		t.Error("generation budget should be exhausted")
	}
}

func TestGetReport_NoBudgets(t *testing.T) {
	r := New().GetReport(context.Background(), domusage.PeriodDay)
	if r.Budgets == nil || len(r.Budgets) != 0 {
		t.Errorf("budgets = %#v, want empty", r.Budgets)
	}
}
