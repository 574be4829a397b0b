package db

import (
	"errors"
	"fmt"
)

// DistanceMetric is the DISTANCE_METRIC of a vector field.
type DistanceMetric string

// DistanceCosine ranks by 1 - cos(a, b); the catalog stores normalized embeddings.
const DistanceCosine DistanceMetric = "COSINE"

// VectorHNSW is the only vector algorithm the catalog index uses.
const VectorHNSW = "HNSW"

// IndexFieldType enumerates the FT field types the catalog schema needs.
type IndexFieldType int

const (
	// IndexFieldNumeric backs range filters (rating, pages, year).
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag backs exact-match filters (genres, reading level).
	IndexFieldTag
	// IndexFieldText backs title keyword search (redis only).
	IndexFieldText
	// IndexFieldVector holds the FLOAT32 embedding.
	IndexFieldVector
)

// IndexField is one SCHEMA entry of FT.CREATE.
type IndexField struct {
	Name string
	Type IndexFieldType

	// Sortable keeps the field in the sort table for SORTBY.
	Sortable bool

	// TagSeparator splits multi-valued tags such as "fantasy|adventure".
	TagSeparator string

	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // HNSW M; zero keeps the server default
	VectorEFConstruct int // HNSW EF_CONSTRUCTION; zero keeps the server default
}

// IndexDefinition is a HASH-backed FT index over a set of key prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate rejects definitions the server would refuse or silently misread.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !validIndexName(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true

		if f.Type != IndexFieldVector {
			continue
		}
		switch {
		case f.VectorDim <= 0:
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		case f.Sortable:
			return fmt.Errorf("vector field cannot be SORTABLE: %s", f.Name)
		case f.VectorM < 0 || f.VectorEFConstruct < 0:
			return fmt.Errorf("vector field %s: negative HNSW parameter", f.Name)
		}
	}
	return nil
}

// validIndexName accepts [a-zA-Z0-9_:-]+, the characters of prefixed index names.
func validIndexName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return s != ""
}
