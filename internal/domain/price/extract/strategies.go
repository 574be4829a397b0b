package extract

import (
	"regexp"
	"strings"
)

func parseDirect(in Input) (Structure, error) {
	text := strings.TrimSpace(in.Text)
	if !strings.HasPrefix(text, "{") {
		return Structure{}, ErrNoCandidate
	}
	return decodeStructure(text)
}

var fenceRe = regexp.MustCompile("(?s)```[ \t]*([A-Za-z]*)[ \t]*\r?\n(.*?)```")

// parseFenced tries json-tagged fences first, then untagged ones.
func parseFenced(in Input) (Structure, error) {
	matches := fenceRe.FindAllStringSubmatch(in.Text, -1)
	if len(matches) == 0 {
		return Structure{}, ErrNoCandidate
	}

	var tagged, untagged []string
	for _, m := range matches {
		switch strings.ToLower(m[1]) {
		case "json":
			tagged = append(tagged, m[2])
		case "":
			untagged = append(untagged, m[2])
		}
	}

	lastErr := ErrNoCandidate
	for _, body := range append(tagged, untagged...) {
		st, err := decodeStructure(strings.TrimSpace(body))
		if err == nil {
			return st, nil
		}
		lastErr = err
	}
	return Structure{}, lastErr
}

var pricesKeyRe = regexp.MustCompile(`"` + PricesKey + `"\s*:\s*\[`)

// parseAnchored finds the smallest balanced object that encloses a
// "prices": [ occurrence and parses it, ignoring prose on either side.
func parseAnchored(in Input) (Structure, error) {
	text := in.Text
	locs := pricesKeyRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return Structure{}, ErrNoCandidate
	}

	lastErr := ErrNoCandidate
	for _, loc := range locs {
		for open := strings.LastIndexByte(text[:loc[0]], '{'); open >= 0; open = strings.LastIndexByte(text[:open], '{') {
			end := matchBrace(text, open)
			if end < loc[1] {
				continue // this object closes before the key, try an outer brace
			}
			st, err := decodeStructure(text[open : end+1])
			if err == nil {
				return st, nil
			}
			lastErr = err
			break
		}
	}
	return Structure{}, lastErr
}

// matchBrace returns the index of the brace closing the one at open, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseBraceSpan(in Input) (Structure, error) {
	first := strings.IndexByte(in.Text, '{')
	last := strings.LastIndexByte(in.Text, '}')
	if first < 0 || last <= first {
		return Structure{}, ErrNoCandidate
	}
	return decodeStructure(in.Text[first : last+1])
}
