// Package mode names the path that actually served a search.
package mode

// Mode is the retrieval path a search response came from.
type Mode string

// Search mode constants, in fallback order.
const (
	// Semantic is the embedding + vector kNN path.
	Semantic Mode = "semantic"
	// Lexical is full-text search over titles.
	Lexical Mode = "lexical"
	// Popular is an unfiltered listing ordered by rating count.
	Popular Mode = "popular"
	// None means every path failed and the result list is empty.
	None Mode = "none"
)

// IsFallback reports whether m is anything other than the primary semantic path.
func (m Mode) IsFallback() bool { return m != Semantic }

// Message returns the user-facing note attached to fallback responses.
func (m Mode) Message() string {
	switch m {
	case Lexical:
		return "Semantic search is temporarily unavailable; showing title matches instead."
	case Popular:
		return "Search is temporarily degraded; showing popular books instead."
	case None:
		return "Search is temporarily unavailable. Please try again shortly."
	default:
		return ""
	}
}
