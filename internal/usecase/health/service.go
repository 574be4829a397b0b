package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	checks map[string]Checker
}

// New creates a Service. Providers are keyed by the name reported in Checks;
// nil checkers are skipped.
func New(db DBPinger, providers map[string]Checker) *Service {
	checks := make(map[string]Checker, len(providers))
	for name, c := range providers {
		if c != nil {
			checks[name] = c
		}
	}
	return &Service{db: db, checks: checks}
}

// Names returns the provider check names in stable order.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs all checks concurrently, each bounded by its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(s.checks)+1)
	)
	run := func(name string, fn func(context.Context) error) {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()

		res := CheckOK
		if err := fn(cctx); err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	wg.Add(1 + len(s.checks))
	go run("database", s.db.Ping)
	for name, c := range s.checks {
		go run(name, c.HealthCheck)
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
