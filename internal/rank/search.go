package rank

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/threadbank/internal/index"
	"github.com/fyrsmithlabs/threadbank/internal/tokenize"
)

const (
	// titleBonus rewards a literal query substring in the title.
	titleBonus = 0.3
	// tagBonus rewards a query substring matching a tag.
	tagBonus = 0.2
	// snippetRadius is the rune window kept around the first query-term hit.
	snippetRadius = 60
)

// Search ranks corpus documents against a free-text query. The query vector
// is built exactly like document vectors; literal substring hits in the
// title or tags add fixed bonuses on top of the TF-IDF cosine score.
func Search(query string, cands Candidates, df *index.DFIndex, opts index.Options, topK int) []SearchResult {
	return SearchWithVector(index.VectorizeQuery(query, df, opts), query, cands, topK)
}

// SearchWithVector is Search with a caller-supplied query vector,
// letting callers cache vectors across repeated queries.
func SearchWithVector(queryVec index.Vector, query string, cands Candidates, topK int) []SearchResult {
	if topK <= 0 {
		return nil
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryTerms := tokenize.Tokenize(query)

	var results []SearchResult
	for _, doc := range cands.Docs {
		var score float64
		if vec, ok := cands.Vectors[doc.ID]; ok {
			score = index.CosineSparse(queryVec, vec)
		}

		if queryLower != "" {
			if strings.Contains(strings.ToLower(doc.Title), queryLower) {
				score += titleBonus
			}
			for _, tag := range doc.Tags {
				if strings.Contains(strings.ToLower(tag), queryLower) {
					score += tagBonus
					break
				}
			}
		}

		if score > 0 {
			results = append(results, SearchResult{
				Doc:     doc,
				Score:   score,
				Type:    MatchTFIDF,
				Snippet: snippet(doc.Body, doc.Summary, queryTerms),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Doc.ID < results[j].Doc.ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// snippet extracts a short display window around the first query-term hit in
// the body, falling back to the summary, then the body head. Matching is
// done rune-by-rune so case folding cannot shift offsets for runes whose
// lowercase form has a different byte length.
func snippet(body, summary string, queryTerms []string) string {
	runes := []rune(body)
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}
	for _, term := range queryTerms {
		termRunes := []rune(term)
		pos := runeIndex(lowered, termRunes)
		if pos < 0 {
			continue
		}
		return window(runes, pos, pos+len(termRunes))
	}
	if summary != "" {
		return truncate(summary, 2*snippetRadius)
	}
	return truncate(body, 2*snippetRadius)
}

// runeIndex returns the rune offset of the first occurrence of needle in
// haystack, or -1.
func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// window returns the text around the rune range [rStart, rEnd), widened to
// snippetRadius runes on each side.
func window(runes []rune, rStart, rEnd int) string {
	lo := rStart - snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := rEnd + snippetRadius
	if hi > len(runes) {
		hi = len(runes)
	}

	out := strings.TrimSpace(string(runes[lo:hi]))
	if lo > 0 {
		out = "…" + out
	}
	if hi < len(runes) {
		out += "…"
	}
	return out
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
