// Package contenthash computes stable fingerprints over the change-relevant
// fields of a document. The hash gates re-indexing: equal hashes mean the
// document has not meaningfully changed and vectorization can be skipped.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fields is the hash-relevant subset of a document. The body is deliberately
// excluded: it is large, and trivial body churn (re-scraped whitespace,
// truncation points) must not invalidate derived indexes.
type Fields struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
	MessageCount int      `json:"message_count"`
}

// Hash returns a hex-encoded SHA-256 digest of a canonical serialization of
// the fields. Tags are sorted before hashing so insertion order is
// irrelevant. The result is deterministic across calls and processes.
func Hash(f Fields) string {
	tags := make([]string, len(f.Tags))
	copy(tags, f.Tags)
	sort.Strings(tags)
	f.Tags = tags

	// json.Marshal of a struct emits fields in declaration order, which
	// gives a canonical byte sequence without hand-rolled serialization.
	payload, err := json.Marshal(f)
	if err != nil {
		// A struct of strings and ints cannot fail to marshal; keep the
		// signature error-free and make any regression loud.
		panic("contenthash: marshal failed: " + err.Error())
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
