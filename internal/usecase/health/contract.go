package health

import (
	"context"

	"github.com/kailas-cloud/bookscout/internal/domain"
)

// DBPinger is satisfied by the redis/valkey store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker is an upstream provider: the embedder or a generator.
type Checker = domain.HealthChecker
