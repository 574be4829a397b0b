// Package price models retailer offers, their validation and the cached lookup result.
package price

import (
	"strings"
	"unicode"
)

// Condition is the format/condition of an offer, a closed set.
type Condition string

// Offer conditions.
const (
	ConditionNew   Condition = "new"
	ConditionUsed  Condition = "used"
	ConditionEbook Condition = "ebook"
)

var (
	ebookWords = wordSet("ebook", "ebooks", "kindle", "nook", "kobo", "digital", "epub")
	usedWords  = wordSet("used", "thrift", "preowned", "secondhand")
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// NormalizeCondition maps a free-form condition onto the closed set by whole
// words, so "unused" stays new. Hyphenated pairs are also tried joined
// ("e-book", "pre-owned"). Digital formats win over "used"; anything
// unrecognized, including "hardcover" and "paperback", is new.
func NormalizeCondition(raw string) Condition {
	words := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, n := 1, len(words); i < n; i++ {
		words = append(words, words[i-1]+words[i])
	}

	used := false
	for _, w := range words {
		if ebookWords[w] {
			return ConditionEbook
		}
		used = used || usedWords[w]
	}
	if used {
		return ConditionUsed
	}
	return ConditionNew
}

// Offer is a validated retailer price.
type Offer struct {
	Retailer  string
	Price     float64
	Condition Condition
	URL       string
}

// Candidate is an offer as extracted from provider text, before validation.
// Price is nil when the text carried no parseable amount.
type Candidate struct {
	Retailer  string
	Price     *float64
	Condition string
	URL       string
}
