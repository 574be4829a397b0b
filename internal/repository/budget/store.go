// Package budget persists token counters as plain integer keys.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/bookscout/internal/db"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	ExpireNX(ctx context.Context, key string, ttl time.Duration) error
}

// Store implements budget.Store with INCRBY, EXPIRE NX and GET.
type Store struct {
	kv kv
}

// New wraps a KV store.
func New(s kv) *Store {
	return &Store{kv: s}
}

// IncrBy adds val to key. The TTL is applied once, on the first write of the
// period, so a counter always expires relative to when its window opened.
func (s *Store) IncrBy(ctx context.Context, key string, val int64, ttl time.Duration) error {
	if err := s.kv.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	if err := s.kv.ExpireNX(ctx, key, ttl); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns the counter, or 0 when the period has no usage yet.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: corrupt counter %q: %w", key, data, err)
	}
	return val, nil
}
