// Package extract recovers retailer offers from semi-structured provider text.
//
// Strategies run in a fixed order and the first one that yields a structure
// wins. A strategy that fails, including by panicking, only ends its own turn.
package extract

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

// PricesKey is the top-level key every JSON structure must carry.
const PricesKey = "prices"

// Strategy names one extraction approach.
type Strategy string

// Strategies in cascade order.
const (
	Direct    Strategy = "direct"
	Fenced    Strategy = "fenced"
	Anchored  Strategy = "anchored"
	BraceSpan Strategy = "brace_span"
	Lines     Strategy = "lines"
)

var (
	// ErrNoStructure is returned when every strategy failed.
	ErrNoStructure = errors.New("no price structure found")
	// ErrNoCandidate means a strategy found nothing shaped like its input.
	ErrNoCandidate = errors.New("no candidate span")
	// ErrMissingKey means JSON parsed but lacked the prices array.
	ErrMissingKey = errors.New(`missing "prices" array`)
)

// Structure is the raw extracted content, prior to validation.
type Structure struct {
	Summary    string
	Candidates []price.Candidate
}

// Attempt records one strategy's outcome. Err is nil for the winner.
type Attempt struct {
	Strategy Strategy
	Err      error
}

// Outcome is the result of running the cascade.
type Outcome struct {
	Structure Structure
	Strategy  Strategy // empty when nothing matched
	Attempts  []Attempt
}

// Found reports whether some strategy succeeded.
func (o Outcome) Found() bool { return o.Strategy != "" }

// Input is what the cascade works from.
type Input struct {
	Text      string
	Citations []domain.Citation // used by the line strategy to attach URLs
}

type strategyFunc func(Input) (Structure, error)

type step struct {
	name Strategy
	fn   strategyFunc
}

// Extractor runs the strategy cascade.
type Extractor struct {
	steps []step
}

// New creates an Extractor with the standard five-strategy cascade.
func New() *Extractor {
	return &Extractor{steps: []step{
		{Direct, parseDirect},
		{Fenced, parseFenced},
		{Anchored, parseAnchored},
		{BraceSpan, parseBraceSpan},
		{Lines, parseLines},
	}}
}

// Extract tries each strategy in order and stops at the first success.
// It never returns an error: a miss is an Outcome with Found() == false.
func (e *Extractor) Extract(in Input) Outcome {
	var out Outcome
	for _, s := range e.steps {
		st, err := run(s.fn, in)
		out.Attempts = append(out.Attempts, Attempt{Strategy: s.name, Err: err})
		if err == nil {
			out.Structure = st
			out.Strategy = s.name
			return out
		}
	}
	return out
}

// Err summarizes a failed outcome, nil when a strategy matched.
func (o Outcome) Err() error {
	if o.Found() {
		return nil
	}
	errs := make([]error, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	return fmt.Errorf("%w: %w", ErrNoStructure, errors.Join(errs...))
}

func run(fn strategyFunc, in Input) (st Structure, err error) {
	defer func() {
		if r := recover(); r != nil {
			st, err = Structure{}, fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return fn(in)
}
