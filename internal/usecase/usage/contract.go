package usage

// BudgetReader is the read side of a budget.Tracker. Name is the provider
// kind ("embedding", "generation") used as the report key.
type BudgetReader interface {
	Name() string
	DailyLimit() int64
	MonthlyLimit() int64
	DailyUsed() int64
	MonthlyUsed() int64
	RemainingDaily() int64
	RemainingMonthly() int64
}
