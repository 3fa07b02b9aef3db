package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/index"
)

func newDoc(id, title string) *document.Document {
	return &document.Document{
		ID:       id,
		Title:    title,
		Tags:     []string{"deploy"},
		Category: "infra",
		Summary:  "rolling deploy of the api service",
		Status:   "active",
		Body:     "we rolled out the new api version",
	}
}

func TestUpsert(t *testing.T) {
	t.Run("insert then unchanged", func(t *testing.T) {
		s := New(index.DefaultOptions(), nil)

		res, err := s.Upsert(newDoc("d1", "deploy api"))
		require.NoError(t, err)
		assert.Equal(t, Inserted, res)

		res, err = s.Upsert(newDoc("d1", "deploy api"))
		require.NoError(t, err)
		assert.Equal(t, Unchanged, res)
	})

	t.Run("field change updates", func(t *testing.T) {
		s := New(index.DefaultOptions(), nil)
		_, err := s.Upsert(newDoc("d1", "deploy api"))
		require.NoError(t, err)

		changed := newDoc("d1", "deploy api")
		changed.Status = "archived"
		res, err := s.Upsert(changed)
		require.NoError(t, err)
		assert.Equal(t, Updated, res)
	})

	t.Run("body change is not a change", func(t *testing.T) {
		s := New(index.DefaultOptions(), nil)
		_, err := s.Upsert(newDoc("d1", "deploy api"))
		require.NoError(t, err)

		changed := newDoc("d1", "deploy api")
		changed.Body = "entirely different transcript body"
		res, err := s.Upsert(changed)
		require.NoError(t, err)
		assert.Equal(t, Unchanged, res)
	})

	t.Run("missing id rejected", func(t *testing.T) {
		s := New(index.DefaultOptions(), nil)
		_, err := s.Upsert(&document.Document{Title: "no id"})
		assert.ErrorIs(t, err, ErrMissingID)
		_, err = s.Upsert(nil)
		assert.ErrorIs(t, err, ErrMissingID)
	})
}

func TestUpsertIdempotenceSkipsRebuild(t *testing.T) {
	s := New(index.DefaultOptions(), nil)
	_, err := s.Upsert(newDoc("d1", "deploy api"))
	require.NoError(t, err)

	df1, _, _ := s.Snapshot()

	res, err := s.Upsert(newDoc("d1", "deploy api"))
	require.NoError(t, err)
	require.Equal(t, Unchanged, res)

	// An unchanged upsert must not invalidate the cache: the same
	// index instance is still served.
	df2, _, _ := s.Snapshot()
	assert.Same(t, df1, df2)
}

func TestGetDelete(t *testing.T) {
	s := New(index.DefaultOptions(), nil)
	_, err := s.Upsert(newDoc("d1", "deploy api"))
	require.NoError(t, err)

	got, err := s.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, "deploy api", got.Title)

	// The returned copy does not alias stored state.
	got.Title = "mutated"
	again, err := s.Get("d1")
	require.NoError(t, err)
	assert.Equal(t, "deploy api", again.Title)

	require.NoError(t, s.Delete("d1"))
	_, err = s.Get("d1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("d1"), ErrNotFound)
}

func TestList(t *testing.T) {
	s := New(index.DefaultOptions(), nil)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mk := func(id string, at time.Time, status string) *document.Document {
		d := newDoc(id, "title "+id)
		d.CreatedAt = at
		d.Status = status
		return d
	}
	for _, d := range []*document.Document{
		mk("b", base, "active"),
		mk("a", base, "active"),
		mk("c", base.Add(time.Hour), "archived"),
	} {
		_, err := s.Upsert(d)
		require.NoError(t, err)
	}

	t.Run("newest first, ties by id", func(t *testing.T) {
		got := s.List(Filter{})
		require.Len(t, got, 3)
		assert.Equal(t, "c", got[0].ID)
		assert.Equal(t, "a", got[1].ID)
		assert.Equal(t, "b", got[2].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		got := s.List(Filter{Status: "archived"})
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].ID)
	})

	t.Run("tag filter", func(t *testing.T) {
		assert.Len(t, s.List(Filter{Tag: "deploy"}), 3)
		assert.Empty(t, s.List(Filter{Tag: "missing"}))
	})
}

func TestSnapshotReflectsUpserts(t *testing.T) {
	s := New(index.DefaultOptions(), nil)

	df, vectors, docs := s.Snapshot()
	assert.Equal(t, 0, df.N())
	assert.Empty(t, vectors)
	assert.Empty(t, docs)

	_, err := s.Upsert(newDoc("d1", "deploy api"))
	require.NoError(t, err)
	_, err = s.Upsert(newDoc("d2", "postmortem review"))
	require.NoError(t, err)

	df, vectors, docs = s.Snapshot()
	assert.Equal(t, 2, df.N())
	assert.Len(t, vectors, 2)
	assert.Len(t, docs, 2)

	vec, ok := s.Vector("d1")
	require.True(t, ok)
	assert.NotZero(t, vec.Len())
	_, ok = s.Vector("missing")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s := New(index.DefaultOptions(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ids := []string{"d1", "d2", "d3", "d4"}
			for j := 0; j < 50; j++ {
				id := ids[(n+j)%len(ids)]
				_, _ = s.Upsert(newDoc(id, "title "+id))
				_, _, _ = s.Snapshot()
				_ = s.List(Filter{})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, s.Count())
}
