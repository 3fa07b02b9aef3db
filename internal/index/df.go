package index

import (
	"math"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/tokenize"
)

// DFIndex maps each term to the number of distinct documents containing it.
type DFIndex struct {
	counts map[string]int
	n      int
}

// Build computes the document frequency table over the corpus. Terms are
// collected from the same weighted fields the vectorizer uses (title, tags,
// category, summary, bounded body prefix), counting each document at most
// once per term.
func Build(docs []*document.Document, opts Options) *DFIndex {
	opts.applyDefaults()

	idx := &DFIndex{
		counts: make(map[string]int),
		n:      len(docs),
	}

	for _, doc := range docs {
		seen := make(map[string]bool)
		for term := range weightedCounts(doc, opts) {
			if !seen[term] {
				seen[term] = true
				idx.counts[term]++
			}
		}
	}

	return idx
}

// N returns the number of documents the index was built over.
func (idx *DFIndex) N() int {
	if idx == nil {
		return 0
	}
	return idx.n
}

// DF returns the document frequency of a term (0 for unknown terms).
func (idx *DFIndex) DF(term string) int {
	if idx == nil {
		return 0
	}
	return idx.counts[term]
}

// IDF returns the smoothed inverse document frequency of a term:
//
//	idf(t) = ln((N+1)/(df(t)+1)) + 1
//
// The +1 smoothing guarantees idf >= 1 and no division by zero for unseen
// terms or an empty corpus.
func (idx *DFIndex) IDF(term string) float64 {
	n, df := 0, 0
	if idx != nil {
		n = idx.n
		df = idx.counts[term]
	}
	return math.Log(float64(n+1)/float64(df+1)) + 1
}

// Terms returns the number of distinct terms in the index.
func (idx *DFIndex) Terms() int {
	if idx == nil {
		return 0
	}
	return len(idx.counts)
}

// weightedCounts tallies term occurrences across a document's text fields,
// applying the field weights before log-damping: title x3, tags x2,
// category x1, summary x1, body prefix x1.
func weightedCounts(doc *document.Document, opts Options) map[string]float64 {
	counts := make(map[string]float64)

	add := func(text string, weight float64) {
		for _, term := range tokenize.Tokenize(text) {
			counts[term] += weight
		}
	}

	add(doc.Title, 3)
	for _, tag := range doc.Tags {
		add(tag, 2)
	}
	add(doc.Category, 1)
	add(doc.Summary, 1)
	add(bodyPrefix(doc.Body, opts.BodyPrefixLen), 1)

	return counts
}

// bodyPrefix bounds the body text considered for indexing. The cut is by
// rune so multi-byte text never splits mid-character.
func bodyPrefix(body string, maxRunes int) string {
	if maxRunes <= 0 || len(body) <= maxRunes {
		return body
	}
	runes := []rune(body)
	if len(runes) <= maxRunes {
		return body
	}
	return string(runes[:maxRunes])
}
