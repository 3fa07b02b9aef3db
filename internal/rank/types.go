package rank

import "github.com/fyrsmithlabs/threadbank/internal/document"

// MatchType identifies which cascade tier produced a match. The numeric
// value doubles as merge priority: higher tiers outrank lower ones.
type MatchType int

const (
	// MatchTags is the tag/category overlap tier.
	MatchTags MatchType = 1
	// MatchTFIDF is the sparse keyword similarity tier.
	MatchTFIDF MatchType = 2
	// MatchEmbedding is the dense semantic similarity tier.
	MatchEmbedding MatchType = 3
)

// String returns the wire name of the match type.
func (m MatchType) String() string {
	switch m {
	case MatchEmbedding:
		return "embedding"
	case MatchTFIDF:
		return "tfidf"
	case MatchTags:
		return "tags"
	default:
		return "unknown"
	}
}

// Match is one ranked similarity result.
type Match struct {
	Doc   *document.Document
	Score float64
	Type  MatchType
}

// SearchResult is one ranked keyword search hit.
type SearchResult struct {
	Doc     *document.Document
	Score   float64
	Type    MatchType
	Snippet string
}
