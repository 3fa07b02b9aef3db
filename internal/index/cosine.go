package index

import (
	"math"
	"strings"
)

// CosineSparse returns the cosine similarity of two sparse TF-IDF vectors.
// Returns 0 when either vector is empty or has zero norm; never errors.
func CosineSparse(a, b Vector) float64 {
	if a.Len() == 0 || b.Len() == 0 {
		return 0
	}

	weights := make(map[string]float64, a.Len())
	for i, term := range a.Terms {
		weights[term] = a.Weights[i]
	}

	var dot float64
	for i, term := range b.Terms {
		if w, ok := weights[term]; ok {
			dot += w * b.Weights[i]
		}
	}
	if dot == 0 {
		return 0
	}

	normA, normB := a.Norm(), b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// CosineDense returns the cosine similarity of two dense embedding vectors.
// Returns 0 on dimension mismatch or zero-norm input; never errors.
func CosineDense(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Jaccard returns the Jaccard overlap of two string sets, comparing
// case-insensitively. Empty-vs-empty is 0, not 1: two untagged documents
// share no signal.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}
