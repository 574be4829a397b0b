package pricecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

const schema = `
CREATE TABLE IF NOT EXISTS price_cache (
	book_id        INTEGER PRIMARY KEY,
	summary        TEXT    NOT NULL,
	prices         TEXT    NOT NULL,
	sources        TEXT    NOT NULL,
	search_queries TEXT    NOT NULL,
	last_fetched   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_cache_last_fetched ON price_cache(last_fetched);
`

// SQLRepo stores one row per book in the price_cache table.
type SQLRepo struct {
	db *sql.DB
}

// NewSQL creates a SQL-backed price cache. Call Migrate before use.
func NewSQL(conn *sql.DB) *SQLRepo {
	return &SQLRepo{db: conn}
}

// Migrate creates the table when missing.
func (r *SQLRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate price_cache: %w", err)
	}
	return nil
}

// Get returns the cached entry for a book. found is false on a miss.
func (r *SQLRepo) Get(ctx context.Context, bookID int64) (price.CacheEntry, bool, error) {
	var (
		summary                  string
		offers, sources, queries string
		fetched                  int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT summary, prices, sources, search_queries, last_fetched FROM price_cache WHERE book_id = ?`,
		bookID,
	).Scan(&summary, &offers, &sources, &queries, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return price.CacheEntry{}, false, nil
	}
	if err != nil {
		return price.CacheEntry{}, false, fmt.Errorf("select price_cache %d: %w", bookID, err)
	}

	rec := record{BookID: bookID, Summary: summary, LastFetched: time.Unix(fetched, 0).UTC()}
	if err := json.Unmarshal([]byte(offers), &rec.Offers); err != nil {
		return price.CacheEntry{}, false, fmt.Errorf("decode prices %d: %w", bookID, err)
	}
	if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
		return price.CacheEntry{}, false, fmt.Errorf("decode sources %d: %w", bookID, err)
	}
	if err := json.Unmarshal([]byte(queries), &rec.SearchQueries); err != nil {
		return price.CacheEntry{}, false, fmt.Errorf("decode search queries %d: %w", bookID, err)
	}
	return rec.entry(), true, nil
}

// Put upserts the row for e.BookID.
func (r *SQLRepo) Put(ctx context.Context, e price.CacheEntry) error {
	rec := toRecord(e)

	offers, err := json.Marshal(rec.Offers)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	queries, err := json.Marshal(rec.SearchQueries)
	if err != nil {
		return fmt.Errorf("encode search queries: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO price_cache (book_id, summary, prices, sources, search_queries, last_fetched)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			summary = excluded.summary,
			prices = excluded.prices,
			sources = excluded.sources,
			search_queries = excluded.search_queries,
			last_fetched = excluded.last_fetched`,
		rec.BookID, rec.Summary, string(offers), string(sources), string(queries), rec.LastFetched.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert price_cache %d: %w", rec.BookID, err)
	}
	return nil
}

// DeleteOlderThan removes rows fetched before cutoff.
func (r *SQLRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM price_cache WHERE last_fetched < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete stale price_cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
