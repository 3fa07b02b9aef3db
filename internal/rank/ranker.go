// Package rank implements the three-tier similarity cascade and keyword
// search over the document corpus.
//
// The cascade tries dense embeddings first, falls back to sparse TF-IDF
// similarity, and finally to tag/category overlap, descending only while the
// running result count is below the requested quota. Lower tiers are cheap
// but coarse; the cascade keeps the expensive comparisons to the minimum
// needed to fill the quota.
package rank

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/index"
)

// Tier thresholds and merge constants. These reproduce the scoring behavior
// the corpus relies on; see DESIGN.md before touching the override margin.
const (
	embeddingThreshold = 0.3
	tfidfThreshold     = 0.1
	tagThreshold       = 0.2

	categoryBonus = 0.3
	jaccardWeight = 0.7

	// overrideMargin lets a lower-tier match outrank a higher-tier one when
	// its score exceeds the competitor's by more than this margin. A strong
	// tag match should not be buried under a razor-thin embedding match.
	overrideMargin = 0.3
)

// Candidates is the corpus view the ranker consumes: documents plus their
// derived vectors. Vectors and embeddings are keyed by document ID; either
// map may be sparse or nil.
type Candidates struct {
	Docs       []*document.Document
	Vectors    map[string]index.Vector
	Embeddings map[string][]float32
}

// FindSimilar ranks corpus documents by similarity to the target, excluding
// the target itself. targetVec is the target's TF-IDF vector; targetEmb is
// the target's dense embedding, nil when no embedding exists. Embeddings in
// cands must all belong to one model; mixing models is the caller's bug and
// surfaces as zero scores through dimension checks, never as an error.
func FindSimilar(target *document.Document, targetVec index.Vector, targetEmb []float32, cands Candidates, topK int) []Match {
	if target == nil || topK <= 0 {
		return nil
	}

	matched := make(map[string]bool)
	var results []Match

	// Tier 1: dense embeddings.
	if targetEmb != nil && hasOtherEmbedding(target.ID, cands.Embeddings) {
		for _, doc := range cands.Docs {
			if doc.ID == target.ID {
				continue
			}
			emb, ok := cands.Embeddings[doc.ID]
			if !ok {
				continue
			}
			score := index.CosineDense(targetEmb, emb)
			if score > embeddingThreshold {
				matched[doc.ID] = true
				results = append(results, Match{Doc: doc, Score: score, Type: MatchEmbedding})
			}
		}

		// A full quota of embedding matches never falls through.
		if len(results) >= topK {
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].Score > results[j].Score
			})
			return results[:topK]
		}
	}

	// Tier 2: sparse TF-IDF.
	if targetVec.Len() > 0 {
		for _, doc := range cands.Docs {
			if doc.ID == target.ID || matched[doc.ID] {
				continue
			}
			vec, ok := cands.Vectors[doc.ID]
			if !ok {
				continue
			}
			score := index.CosineSparse(targetVec, vec)
			if score > tfidfThreshold {
				matched[doc.ID] = true
				results = append(results, Match{Doc: doc, Score: score, Type: MatchTFIDF})
			}
		}

		if len(results) >= topK {
			// Embedding matches rank ahead of TF-IDF matches here regardless
			// of raw score; the override rule applies only to the final
			// three-tier merge.
			sort.SliceStable(results, func(i, j int) bool {
				if results[i].Type != results[j].Type {
					return results[i].Type > results[j].Type
				}
				return results[i].Score > results[j].Score
			})
			return results[:topK]
		}
	}

	// Tier 3: tag/category overlap.
	for _, doc := range cands.Docs {
		if doc.ID == target.ID || matched[doc.ID] {
			continue
		}
		score := tagScore(target, doc)
		if score > tagThreshold {
			results = append(results, Match{Doc: doc, Score: score, Type: MatchTags})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return rankedBefore(results[i], results[j])
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// rankedBefore orders the final merge: higher tier first, score descending
// within a tier, except that a lower-tier match whose score beats the
// higher-tier competitor's by more than overrideMargin wins the comparison.
func rankedBefore(a, b Match) bool {
	if a.Type == b.Type {
		return a.Score > b.Score
	}
	if a.Type > b.Type {
		// a holds priority; b steals the slot only on a decisive margin.
		return b.Score-a.Score <= overrideMargin
	}
	return a.Score-b.Score > overrideMargin
}

// tagScore blends exact category match with tag Jaccard overlap.
func tagScore(a, b *document.Document) float64 {
	var score float64
	if a.Category != "" && strings.EqualFold(a.Category, b.Category) {
		score += categoryBonus
	}
	score += jaccardWeight * index.Jaccard(a.Tags, b.Tags)
	return score
}

func hasOtherEmbedding(targetID string, embeddings map[string][]float32) bool {
	for id, emb := range embeddings {
		if id != targetID && len(emb) > 0 {
			return true
		}
	}
	return false
}
