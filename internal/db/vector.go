package db

import (
	"fmt"

	"github.com/redis/rueidis"
)

// EncodeVector packs v as little-endian FLOAT32, the blob layout HNSW
// fields and KNN query params expect.
func EncodeVector(v []float32) []byte {
	return []byte(rueidis.VectorString32(v))
}

// DecodeVector reverses EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not a FLOAT32 array", len(data))
	}
	return rueidis.ToVector32(string(data)), nil
}
