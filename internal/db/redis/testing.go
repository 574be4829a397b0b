package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an existing client (typically a rueidis mock) in a Store.
func NewStoreForTest(client rueidis.Client, textSearch bool) *Store {
	return &Store{client: client, textSearch: textSearch}
}
