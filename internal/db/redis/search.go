package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/bookscout/internal/db"
	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/search/filter"
)

const (
	dialect    = "2"
	scoreField = "__vector_score"
)

// SearchKNN runs "(filter)=>[KNN k @field $BLOB]". Entry scores are raw
// cosine distances.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case q.VectorField == "":
		return nil, errors.New("vector field is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	prefilter := "*"
	if f := buildFilter(q.Filters); f != "" {
		prefilter = "(" + f + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", prefilter, q.K, q.VectorField)

	returnFields := q.ReturnFields
	if len(returnFields) > 0 {
		returnFields = append(returnFields[:len(returnFields):len(returnFields)], scoreField)
	}

	// Without LIMIT the server stops at 10 hits regardless of K.
	args := searchArgs(q.IndexName, query, returnFields)
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", rueidis.VectorString32(q.Vector),
		"DIALECT", dialect,
	)

	res, err := s.ftSearch(ctx, args, false)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if raw, ok := e.Fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(raw, 64); err == nil {
				e.Score = d
			}
			delete(e.Fields, scoreField)
		}
	}
	return res, nil
}

// SearchText runs a keyword query on one TEXT field, ranked by relevance.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if !s.textSearch {
		return nil, domain.ErrTextSearchNotSupported
	}
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case q.Field == "":
		return nil, errors.New("field is required")
	case strings.TrimSpace(q.Query) == "":
		return nil, errors.New("query is required")
	case q.Limit <= 0:
		return nil, errors.New("limit must be positive")
	}

	query := fmt.Sprintf("@%s:(%s)", q.Field, escape(q.Query, true))
	if f := buildFilter(q.Filters); f != "" {
		query = f + " " + query
	}

	args := searchArgs(q.IndexName, query, q.ReturnFields)
	args = append(args, "WITHSCORES", "LIMIT", "0", strconv.Itoa(q.Limit), "DIALECT", dialect)
	return s.ftSearch(ctx, args, true)
}

// SearchSorted lists every indexed document ordered by a SORTABLE field.
func (s *Store) SearchSorted(ctx context.Context, q *db.SortedQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case q.Limit <= 0:
		return nil, errors.New("limit must be positive")
	}

	args := searchArgs(q.IndexName, "*", q.ReturnFields)
	if q.SortBy != "" {
		order := "ASC"
		if q.Desc {
			order = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, order)
	}
	args = append(args, "LIMIT", "0", strconv.Itoa(q.Limit), "DIALECT", dialect)
	return s.ftSearch(ctx, args, false)
}

func searchArgs(index, query string, returnFields []string) []string {
	args := []string{index, query}
	if len(returnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(returnFields)))
		args = append(args, returnFields...)
	}
	return args
}

func (s *Store) ftSearch(ctx context.Context, args []string, withScores bool) (*db.SearchResult, error) {
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseReply(raw, withScores)
}

// parseReply reads the RESP2 FT.SEARCH reply
// [total, key, fields, key, fields, ...], or with WITHSCORES
// [total, key, score, fields, ...]. Malformed hits are skipped.
func parseReply(raw []rueidis.RedisMessage, withScores bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	stride := 2
	if withScores {
		stride = 3
	}
	res := &db.SearchResult{Total: int(total), Entries: make([]db.SearchEntry, 0, (len(raw)-1)/stride)}
	for i := 1; i+stride <= len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key}
		if withScores {
			if entry.Score, err = raw[i+1].AsFloat64(); err != nil {
				continue
			}
		}
		if entry.Fields, err = raw[i+stride-1].AsStrMap(); err != nil {
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// buildFilter renders a conjunction as space-separated FT clauses.
func buildFilter(expr filter.Expression) string {
	conds := expr.Conditions()
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if c.IsTag() {
			parts = append(parts, tagClause(c.Key(), c.Values()))
			continue
		}
		lo, hi := c.Bounds()
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", c.Key(), bound(lo, "-inf"), bound(hi, "+inf")))
	}
	return strings.Join(parts, " ")
}

// tagClause matches any of values: @genres:{science\ fiction | fantasy}.
func tagClause(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escape(v, false)
	}
	return "@" + key + ":{" + strings.Join(escaped, " | ") + "}"
}

func bound(v *float64, open string) string {
	if v == nil {
		return open
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// escape backslash-escapes query syntax. Tag values escape spaces too, so a
// multi-word genre stays one token; keyword queries keep them as separators.
func escape(s string, keepSpaces bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
		case r == ' ' && keepSpaces:
		default:
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
