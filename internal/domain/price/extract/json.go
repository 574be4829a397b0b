package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

type rawOffer struct {
	Retailer  string          `json:"retailer"`
	Store     string          `json:"store"`
	Price     json.RawMessage `json:"price"`
	Type      string          `json:"type"`
	Condition string          `json:"condition"`
	URL       string          `json:"url"`
	Link      string          `json:"link"`
}

// decodeStructure parses a JSON object that must carry a prices array.
// Offers that are not objects are skipped; the validator handles bad fields.
func decodeStructure(s string) (Structure, error) {
	var top map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&top); err != nil {
		return Structure{}, err
	}
	if dec.More() {
		return Structure{}, ErrNoCandidate
	}

	rawPrices, ok := top[PricesKey]
	if !ok {
		return Structure{}, ErrMissingKey
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawPrices, &items); err != nil {
		return Structure{}, ErrMissingKey
	}

	st := Structure{Candidates: make([]price.Candidate, 0, len(items))}
	if raw, ok := top["summary"]; ok {
		_ = json.Unmarshal(raw, &st.Summary)
	}

	for _, item := range items {
		var ro rawOffer
		if err := json.Unmarshal(item, &ro); err != nil {
			continue
		}
		st.Candidates = append(st.Candidates, price.Candidate{
			Retailer:  firstNonEmpty(ro.Retailer, ro.Store),
			Price:     parsePriceValue(ro.Price),
			Condition: firstNonEmpty(ro.Type, ro.Condition),
			URL:       firstNonEmpty(ro.URL, ro.Link),
		})
	}
	return st, nil
}

// amountPattern matches 12.99, 12,99, 1,299.00 and 1.299,00. A separator
// followed by exactly three digits groups thousands; one or two digits are
// decimals.
const amountPattern = `\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`

var amountRe = regexp.MustCompile(amountPattern)

// parsePriceValue accepts 12.99, "12.99", "$12.99" and "12,99 €".
func parsePriceValue(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return parseAmount(s)
}

func parseAmount(s string) *float64 {
	m := amountRe.FindString(s)
	if m == "" {
		return nil
	}
	whole, frac := m, ""
	if i := strings.LastIndexAny(m, ".,"); i >= 0 && len(m)-i-1 != 3 {
		whole, frac = m[:i], m[i+1:]
	}
	num := strings.NewReplacer(",", "", ".", "").Replace(whole)
	if frac != "" {
		num += "." + frac
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &f
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
