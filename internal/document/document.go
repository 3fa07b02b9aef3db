// Package document defines the transcript document model shared by the
// store, the indexes, and the ranker.
package document

import (
	"time"

	"github.com/fyrsmithlabs/threadbank/internal/contenthash"
)

// Document is one ingested chat-thread transcript.
type Document struct {
	// ID is the stable, caller-assigned identifier. Unique within a corpus.
	ID string `json:"id"`

	// Title is the thread title.
	Title string `json:"title"`

	// Tags are free-form labels. Insertion order carries no meaning.
	Tags []string `json:"tags,omitempty"`

	// Category is a single coarse bucket ("incidents", "design", ...).
	Category string `json:"category,omitempty"`

	// Summary is an optional condensed description.
	Summary string `json:"summary,omitempty"`

	// Status tracks the thread lifecycle ("active", "archived", ...).
	Status string `json:"status,omitempty"`

	// MessageCount is the number of messages in the transcript.
	MessageCount int `json:"message_count,omitempty"`

	// Body is the searchable transcript text. May be truncated on ingest.
	Body string `json:"body"`

	// CreatedAt is when the thread was created at the source.
	CreatedAt time.Time `json:"created_at"`
}

// HashFields returns the change-relevant field subset for content hashing.
// Body is excluded on purpose; see contenthash.
func (d *Document) HashFields() contenthash.Fields {
	return contenthash.Fields{
		Title:        d.Title,
		Summary:      d.Summary,
		Category:     d.Category,
		Tags:         d.Tags,
		Status:       d.Status,
		MessageCount: d.MessageCount,
	}
}

// Hash returns the document's content hash.
func (d *Document) Hash() string {
	return contenthash.Hash(d.HashFields())
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Tags != nil {
		cp.Tags = make([]string, len(d.Tags))
		copy(cp.Tags, d.Tags)
	}
	return &cp
}
