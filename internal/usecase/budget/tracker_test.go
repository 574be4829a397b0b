package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

func newTracker(limits Limits) *Tracker {
	return NewTracker("embedding", "bookscout:", limits, zap.NewNop())
}

func TestTracker_RejectWhenExceeded(t *testing.T) {
	bt := newTracker(Limits{Daily: 100, Action: ActionReject})
	bt.Record(100)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
}

func TestTracker_WarnWhenExceeded(t *testing.T) {
	bt := newTracker(Limits{Daily: 100, Action: ActionWarn})
	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestTracker_MonthlyReject(t *testing.T) {
	bt := newTracker(Limits{Monthly: 500, Action: ActionReject})
	bt.Record(500)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded for monthly limit, got %v", err)
	}
}

func TestTracker_UnlimitedWhenZero(t *testing.T) {
	bt := newTracker(Limits{Action: ActionReject})
	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 remaining for unlimited, got %d/%d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestTracker_Remaining(t *testing.T) {
	bt := newTracker(Limits{Daily: 1000, Monthly: 10000, Action: ActionWarn})
	bt.Record(300)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("RemainingDaily = %d, want 700", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("RemainingMonthly = %d, want 9700", got)
	}

	bt.Record(5000)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("RemainingDaily clamps at 0, got %d", got)
	}
}

func TestTracker_IgnoresNonPositive(t *testing.T) {
	bt := newTracker(Limits{Daily: 10})
	bt.Record(0)
	bt.Record(-5)
	if bt.DailyUsed() != 0 {
		t.Fatalf("DailyUsed = %d, want 0", bt.DailyUsed())
	}
}

func TestTracker_DayRollover(t *testing.T) {
	bt := newTracker(Limits{Daily: 100, Monthly: 1000, Action: ActionReject})
	day := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	bt.now = func() time.Time { return day }
	bt.lastDayReset = truncateToDay(day)
	bt.lastMonthReset = truncateToMonth(day)

	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected rejection before rollover")
	}

	day = day.Add(2 * time.Hour)
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected daily reset after midnight, got %v", err)
	}
	if bt.MonthlyUsed() != 100 {
		t.Errorf("monthly counter must survive a day rollover, got %d", bt.MonthlyUsed())
	}
}

// --- Mock Store ---

type mockStore struct {
	mu     sync.Mutex
	data   map[string]int64
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

// --- Persistence ---

func TestTracker_WithStore_LoadsValues(t *testing.T) {
	store := newMockStore()
	bt := newTracker(Limits{Daily: 1000, Monthly: 10000, Action: ActionReject})
	now := bt.now()
	store.data[bt.dailyKey(now)] = 300
	store.data[bt.monthlyKey(now)] = 5000

	bt.WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockStore()
	bt := newTracker(Limits{Daily: 10000, Monthly: 100000, Action: ActionWarn})
	bt.WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)

	now := bt.now()
	store.mu.Lock()
	defer store.mu.Unlock()
	daily, monthly := store.data[bt.dailyKey(now)], store.data[bt.monthlyKey(now)]

	if daily != 300 || monthly != 300 {
		t.Errorf("stored daily/monthly = %d/%d, want 300/300", daily, monthly)
	}
	if store.ttls[bt.dailyKey(now)] != DailyRetention || store.ttls[bt.monthlyKey(now)] != MonthlyRetention {
		t.Errorf("retention = %v/%v", store.ttls[bt.dailyKey(now)], store.ttls[bt.monthlyKey(now)])
	}
}

func TestTracker_WithStore_LoadError(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection refused")

	bt := newTracker(Limits{Daily: 1000}).WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero counters on load error, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestTracker_Record_StoreWriteError(t *testing.T) {
	store := newMockStore()
	bt := newTracker(Limits{Daily: 1000}).WithStore(context.Background(), store)

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	bt.Record(50)

	if bt.DailyUsed() != 50 {
		t.Errorf("expected daily_used=50 even with store error, got %d", bt.DailyUsed())
	}
}

func TestTracker_KeyFormat(t *testing.T) {
	bt := NewTracker("generation", "bookscout:", Limits{}, zap.NewNop())
	ts := time.Date(2026, 10, 3, 12, 0, 0, 0, time.UTC)

	if got := bt.dailyKey(ts); got != "bookscout:budget:generation:daily:2026-10-03" {
		t.Errorf("daily key = %q", got)
	}
	if got := bt.monthlyKey(ts); got != "bookscout:budget:generation:monthly:2026-10" {
		t.Errorf("monthly key = %q", got)
	}
}
