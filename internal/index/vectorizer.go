package index

import (
	"math"
	"sort"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/tokenize"
)

// Options bounds vectorization cost.
type Options struct {
	// MaxTerms caps the number of terms kept per vector (default 100).
	MaxTerms int

	// BodyPrefixLen is the number of body runes considered (default 2000).
	BodyPrefixLen int
}

func (o *Options) applyDefaults() {
	if o.MaxTerms <= 0 {
		o.MaxTerms = 100
	}
	if o.BodyPrefixLen <= 0 {
		o.BodyPrefixLen = 2000
	}
}

// DefaultOptions returns the standard vectorization bounds.
func DefaultOptions() Options {
	var o Options
	o.applyDefaults()
	return o
}

// Vector is a sparse TF-IDF vector: parallel term and weight sequences,
// sorted by weight descending with ties broken by term ascending.
type Vector struct {
	Terms   []string  `json:"terms"`
	Weights []float64 `json:"weights"`
}

// Norm returns the Euclidean norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Len returns the number of terms in the vector.
func (v Vector) Len() int { return len(v.Terms) }

// Vectorize builds the TF-IDF vector for a document against a DF index.
// Term frequency is log-damped over the field-weighted raw count:
//
//	score(t) = ln(1 + weightedCount(t)) * idf(t)
//
// The vector is truncated to MaxTerms by score; truncation is deterministic
// (stable order: score descending, ties by term ascending).
func Vectorize(doc *document.Document, df *DFIndex, opts Options) Vector {
	opts.applyDefaults()
	return fromCounts(weightedCounts(doc, opts), df, opts.MaxTerms)
}

// VectorizeQuery builds a vector for a free-text query the same way document
// vectors are built, with every term carrying weight 1 before damping.
func VectorizeQuery(query string, df *DFIndex, opts Options) Vector {
	opts.applyDefaults()
	counts := make(map[string]float64)
	for _, term := range tokenize.Tokenize(query) {
		counts[term]++
	}
	return fromCounts(counts, df, opts.MaxTerms)
}

func fromCounts(counts map[string]float64, df *DFIndex, maxTerms int) Vector {
	type scored struct {
		term  string
		score float64
	}

	entries := make([]scored, 0, len(counts))
	for term, count := range counts {
		score := math.Log(1+count) * df.IDF(term)
		entries = append(entries, scored{term: term, score: score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].term < entries[j].term
	})

	if maxTerms > 0 && len(entries) > maxTerms {
		entries = entries[:maxTerms]
	}

	v := Vector{
		Terms:   make([]string, len(entries)),
		Weights: make([]float64, len(entries)),
	}
	for i, e := range entries {
		v.Terms[i] = e.term
		v.Weights[i] = e.score
	}
	return v
}
