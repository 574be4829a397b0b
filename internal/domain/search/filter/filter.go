// Package filter describes store pre-filters over indexed book fields.
// Every expression is a conjunction; the catalog never needs OR or NOT.
package filter

import (
	"errors"
	"fmt"
)

// MaxConditions bounds one expression. The request model produces at most
// five, so anything larger is a programming error.
const MaxConditions = 16

// Expression is a conjunction of conditions. The zero value matches every book.
type Expression struct {
	conds []Condition
}

// All joins conditions with AND.
func All(conds ...Condition) (Expression, error) {
	if len(conds) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{conds: conds}, nil
}

// Conditions returns the clauses in insertion order.
func (e Expression) Conditions() []Condition { return e.conds }

// IsEmpty reports whether the expression filters nothing.
func (e Expression) IsEmpty() bool { return len(e.conds) == 0 }

// Condition is either a tag any-of match or an inclusive numeric range.
type Condition struct {
	key    string
	values []string
	lo, hi *float64
}

// NewMatch requires a single-valued tag to equal value.
func NewMatch(key, value string) (Condition, error) {
	return NewAnyOf(key, value)
}

// NewAnyOf matches books whose tag field holds at least one of values.
func NewAnyOf(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, errors.New("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty match value for key %q", key)
		}
	}
	return Condition{key: key, values: values}, nil
}

// NewRange keeps books with lo <= field <= hi. A nil bound is open.
func NewRange(key string, lo, hi *float64) (Condition, error) {
	if key == "" {
		return Condition{}, errors.New("filter key is required")
	}
	if lo == nil && hi == nil {
		return Condition{}, fmt.Errorf("range on %q needs at least one bound", key)
	}
	if lo != nil && hi != nil && *lo > *hi {
		return Condition{}, fmt.Errorf("range on %q: min %g > max %g", key, *lo, *hi)
	}
	return Condition{key: key, lo: lo, hi: hi}, nil
}

// Key returns the indexed field name.
func (c Condition) Key() string { return c.key }

// Values returns the accepted tag values; nil for a range.
func (c Condition) Values() []string { return c.values }

// Bounds returns the inclusive range limits; both nil for a tag match.
func (c Condition) Bounds() (lo, hi *float64) { return c.lo, c.hi }

// IsTag reports whether the condition is a tag match.
func (c Condition) IsTag() bool { return len(c.values) > 0 }
