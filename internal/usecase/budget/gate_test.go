package budget

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/metrics"
)

func TestAdmit_NilChecker(t *testing.T) {
	if err := Admit(context.Background(), nil); err != nil {
		t.Fatalf("nil checker must admit, got %v", err)
	}
	Spend(nil, 100)
}

func TestAdmit_Rejects(t *testing.T) {
	tr := NewTracker("gate-reject", "test:", Limits{Daily: 10, Action: ActionReject}, zap.NewNop())
	tr.Record(10)

	err := Admit(context.Background(), tr)
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestSpend_UpdatesGauges(t *testing.T) {
	tr := NewTracker("gate-spend", "test:", Limits{Daily: 1000, Monthly: 5000}, zap.NewNop())

	Spend(tr, 0)
	if tr.DailyUsed() != 0 {
		t.Fatal("zero tokens must not be recorded")
	}

	Spend(tr, 250)
	if tr.DailyUsed() != 250 {
		t.Fatalf("daily used = %d, want 250", tr.DailyUsed())
	}
	if v := testutil.ToFloat64(metrics.BudgetTokensRemaining.WithLabelValues("gate-spend", "daily")); v != 750 {
		t.Errorf("daily gauge = %v, want 750", v)
	}
	if v := testutil.ToFloat64(metrics.BudgetTokensRemaining.WithLabelValues("gate-spend", "monthly")); v != 4750 {
		t.Errorf("monthly gauge = %v, want 4750", v)
	}
}
