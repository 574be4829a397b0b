package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/price"
)

const maxSummaryRunes = 400

var (
	// [Amazon](https://amazon.com/...) -> Amazon, remembering the URL.
	mdLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	urlRe    = regexp.MustCompile(`https?://[^\s<>"'\])}]+`)
	bulletRe = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)

	// <label>: <currency amount> [- <condition>] after markdown is stripped.
	// The currency may lead ($12.99) or trail (9,50 €, 12.99 USD).
	offerLineRe = regexp.MustCompile(
		`^([^:]{1,80}?)\s*:\s*` +
			`(?:` +
			`(?:(?:USD|US)\s*)?([$£€])\s*(` + amountPattern + `)(?:\s*USD)?` +
			`|(` + amountPattern + `)\s*(?:[$£€]|USD|EUR|GBP)` +
			`)` +
			`(?:\s*(?:-|–|—|\(|,)\s*([A-Za-z][A-Za-z\- ]*[A-Za-z]|[A-Za-z]))?`)
)

// parseLines scans for "<retailer>: $12.99 - used" lines and attaches the
// best matching URL from the line itself, the citations or the text.
func parseLines(in Input) (Structure, error) {
	pool := urlPool(in)
	var (
		st      Structure
		summary []string
	)

	for _, line := range strings.Split(in.Text, "\n") {
		cand, ok := parseOfferLine(line)
		if !ok {
			if t := strings.TrimSpace(line); t != "" && len(st.Candidates) == 0 {
				summary = append(summary, t)
			}
			continue
		}
		if cand.URL == "" {
			cand.URL = bestURL(cand.Retailer, pool)
		}
		st.Candidates = append(st.Candidates, cand)
	}

	if len(st.Candidates) == 0 {
		return Structure{}, ErrNoCandidate
	}
	st.Summary = truncateRunes(stripMarkdown(strings.Join(summary, " ")), maxSummaryRunes)
	return st, nil
}

func parseOfferLine(line string) (price.Candidate, bool) {
	var inlineURL string
	line = mdLinkRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := mdLinkRe.FindStringSubmatch(m)
		if inlineURL == "" {
			inlineURL = sub[2]
		}
		return sub[1]
	})
	if inlineURL == "" {
		inlineURL = trimURL(urlRe.FindString(line))
	}
	// Drop bare URLs so "https:" cannot be mistaken for a label separator.
	line = urlRe.ReplaceAllString(line, "")
	line = stripMarkdown(bulletRe.ReplaceAllString(line, ""))

	m := offerLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return price.Candidate{}, false
	}
	label := strings.Trim(strings.TrimSpace(m[1]), "-*_ ")
	if label == "" {
		return price.Candidate{}, false
	}
	amount := m[3]
	if amount == "" {
		amount = m[4]
	}
	return price.Candidate{
		Retailer:  label,
		Price:     parseAmount(amount),
		Condition: strings.TrimSpace(m[5]),
		URL:       inlineURL,
	}, true
}

func stripMarkdown(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}

func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?")
}

type urlCandidate struct {
	url   string
	label string // lowercased host + title, letters and digits only
}

// urlPool collects citation URLs first, then any URL mentioned in the text.
func urlPool(in Input) []urlCandidate {
	seen := map[string]bool{}
	var pool []urlCandidate
	add := func(u, title string) {
		u = trimURL(strings.TrimSpace(u))
		if u == "" || seen[u] || !price.IsHTTPURL(u) {
			return
		}
		seen[u] = true
		pool = append(pool, urlCandidate{url: u, label: compact(hostOf(u) + " " + title)})
	}
	for _, c := range in.Citations {
		add(c.URL, c.Title)
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(in.Text, -1) {
		add(m[2], m[1])
	}
	for _, u := range urlRe.FindAllString(in.Text, -1) {
		add(u, "")
	}
	return pool
}

// bestURL scores candidates by overlap with the retailer name: the whole
// compacted name inside the label beats individual words.
func bestURL(retailer string, pool []urlCandidate) string {
	name := compact(retailer)
	if name == "" {
		return ""
	}
	words := significantWords(retailer)

	best, bestScore := "", 0
	for _, c := range pool {
		score := 0
		if strings.Contains(c.label, name) {
			score = 100 + len(name)
		} else {
			for _, w := range words {
				if strings.Contains(c.label, w) {
					score += len(w)
				}
			}
		}
		if score > bestScore {
			best, bestScore = c.url, score
		}
	}
	return best
}

func hostOf(u string) string {
	rest := u[strings.Index(u, "://")+3:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 3 && w != "the" && w != "and" && w != "books" && w != "com" {
			out = append(out, w)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

// HarvestURLs returns the distinct http(s) URLs mentioned in text as citations.
func HarvestURLs(text string) []domain.Citation {
	var out []domain.Citation
	for _, c := range urlPool(Input{Text: text}) {
		out = append(out, domain.Citation{URL: c.url})
	}
	return out
}
