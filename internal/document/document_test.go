package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	base := &Document{
		ID:           "t-1",
		Title:        "TLS handshake failures after cert rotation",
		Tags:         []string{"tls", "incidents"},
		Category:     "incidents",
		Summary:      "Rotated certs broke mutual TLS between services.",
		Status:       "active",
		MessageCount: 14,
		Body:         "full transcript text",
	}

	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, base.Hash(), base.Hash())
	})

	t.Run("body changes do not affect the hash", func(t *testing.T) {
		changed := base.Clone()
		changed.Body = "a completely different transcript"
		assert.Equal(t, base.Hash(), changed.Hash())
	})

	t.Run("metadata changes do affect the hash", func(t *testing.T) {
		for name, mutate := range map[string]func(*Document){
			"title":         func(d *Document) { d.Title = "other" },
			"summary":       func(d *Document) { d.Summary = "other" },
			"category":      func(d *Document) { d.Category = "design" },
			"tags":          func(d *Document) { d.Tags = append(d.Tags, "extra") },
			"status":        func(d *Document) { d.Status = "archived" },
			"message count": func(d *Document) { d.MessageCount++ },
		} {
			changed := base.Clone()
			mutate(changed)
			assert.NotEqual(t, base.Hash(), changed.Hash(), name)
		}
	})
}

func TestClone(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var d *Document
		assert.Nil(t, d.Clone())
	})

	t.Run("tags do not alias", func(t *testing.T) {
		d := &Document{ID: "t-1", Tags: []string{"a", "b"}}
		cp := d.Clone()
		require.Equal(t, d, cp)

		cp.Tags[0] = "mutated"
		assert.Equal(t, "a", d.Tags[0])
	})
}
