// Package pricecache persists the last successful price lookup per book.
package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/bookscout/internal/db"
	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

// kvStore is the consumer interface for the KV-backed cache (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVRepo stores one JSON document per book at <prefix>price:<book_id>.
type KVRepo struct {
	store     kvStore
	keyPrefix string
}

// NewKV creates a KV-backed price cache.
func NewKV(s kvStore, keyPrefix string) *KVRepo {
	return &KVRepo{store: s, keyPrefix: keyPrefix + "price:"}
}

// Get returns the cached entry for a book. found is false on a miss.
func (r *KVRepo) Get(ctx context.Context, bookID int64) (price.CacheEntry, bool, error) {
	key := r.key(bookID)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return price.CacheEntry{}, false, nil
		}
		return price.CacheEntry{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return price.CacheEntry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec.entry(), true, nil
}

// Put overwrites the entry for e.BookID.
func (r *KVRepo) Put(ctx context.Context, e price.CacheEntry) error {
	data, err := json.Marshal(toRecord(e))
	if err != nil {
		return fmt.Errorf("encode price entry: %w", err)
	}
	key := r.key(e.BookID)
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// DeleteOlderThan removes entries fetched before cutoff. Unreadable entries are removed too.
func (r *KVRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan price cache: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		data, err := r.store.Get(ctx, key)
		if errors.Is(err, db.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("get %s: %w", key, err)
		}

		var rec record
		if json.Unmarshal(data, &rec) == nil && !rec.LastFetched.Before(cutoff) {
			continue
		}
		if err := r.store.Del(ctx, key); err != nil {
			return removed, fmt.Errorf("del %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

func (r *KVRepo) key(bookID int64) string {
	return r.keyPrefix + strconv.FormatInt(bookID, 10)
}
