package pricecache

import (
	"context"
	"path"
	"sort"
	"time"

	"github.com/kailas-cloud/bookscout/internal/db"
	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

// memKV implements kvStore over a map.
type memKV struct {
	data   map[string][]byte
	getErr error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) Scan(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func sampleEntry(bookID int64, fetched time.Time) price.CacheEntry {
	return price.CacheEntry{
		BookID:  bookID,
		Summary: "Prices range from $9.99 to $18.00.",
		Offers: []price.Offer{
			{Retailer: "Amazon", Price: 12.99, Condition: price.ConditionNew, URL: "https://www.amazon.com/dp/0441013597"},
			{Retailer: "ThriftBooks", Price: 9.99, Condition: price.ConditionUsed, URL: "https://www.thriftbooks.com/w/dune"},
		},
		Sources:       []domain.Citation{{URL: "https://www.amazon.com/dp/0441013597", Title: "Dune"}},
		SearchQueries: []string{"Dune Frank Herbert price"},
		LastFetched:   fetched,
	}
}
