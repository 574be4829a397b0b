package price

import (
	"math"
	"net/url"
	"strings"
)

// DefaultMaxPrice is the sanity ceiling for a single offer.
const DefaultMaxPrice = 1000.0

// Drop reasons reported by Filter.
const (
	ReasonMissingRetailer = "missing_retailer"
	ReasonMissingPrice    = "missing_price"
	ReasonPriceBounds     = "price_out_of_bounds"
	ReasonBadURL          = "bad_url"
)

// Validator applies offer sanity rules. The known-retailer list is advisory.
type Validator struct {
	maxPrice float64
	known    map[string]struct{}
}

// NewValidator creates a Validator. maxPrice <= 0 uses DefaultMaxPrice.
func NewValidator(maxPrice float64, knownRetailers []string) *Validator {
	if maxPrice <= 0 {
		maxPrice = DefaultMaxPrice
	}
	known := make(map[string]struct{}, len(knownRetailers))
	for _, r := range knownRetailers {
		known[retailerKey(r)] = struct{}{}
	}
	return &Validator{maxPrice: maxPrice, known: known}
}

// FilterReport describes what Filter dropped and flagged.
type FilterReport struct {
	Dropped map[string]int
	Unknown []string // retailers kept but absent from the known list
}

// Filter keeps only candidates that pass every hard rule, preserving order.
func (v *Validator) Filter(cands []Candidate) ([]Offer, FilterReport) {
	report := FilterReport{Dropped: map[string]int{}}
	offers := make([]Offer, 0, len(cands))

	for _, c := range cands {
		offer, reason := v.check(c)
		if reason != "" {
			report.Dropped[reason]++
			continue
		}
		if len(v.known) > 0 && !v.IsKnown(offer.Retailer) {
			report.Unknown = append(report.Unknown, offer.Retailer)
		}
		offers = append(offers, offer)
	}
	return offers, report
}

func (v *Validator) check(c Candidate) (Offer, string) {
	retailer := strings.TrimSpace(c.Retailer)
	if retailer == "" {
		return Offer{}, ReasonMissingRetailer
	}
	if c.Price == nil {
		return Offer{}, ReasonMissingPrice
	}
	p := *c.Price
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 || p >= v.maxPrice {
		return Offer{}, ReasonPriceBounds
	}
	u := strings.TrimSpace(c.URL)
	if !IsHTTPURL(u) {
		return Offer{}, ReasonBadURL
	}
	return Offer{
		Retailer:  retailer,
		Price:     p,
		Condition: NormalizeCondition(c.Condition),
		URL:       u,
	}, ""
}

// IsKnown reports whether the retailer is on the known list.
func (v *Validator) IsKnown(retailer string) bool {
	_, ok := v.known[retailerKey(retailer)]
	return ok
}

// IsHTTPURL reports whether s is an absolute http(s) URL with a host.
func IsHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

func retailerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
