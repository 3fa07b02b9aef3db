package corpus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/threadbank/internal/document"
	"github.com/fyrsmithlabs/threadbank/internal/queue"
	"github.com/fyrsmithlabs/threadbank/internal/rank"
	"github.com/fyrsmithlabs/threadbank/internal/store"
)

func testDoc(id, title, summary string, tags []string) *document.Document {
	return &document.Document{
		ID:       id,
		Title:    title,
		Tags:     tags,
		Category: "infra",
		Summary:  summary,
		Status:   "active",
		Body:     summary,
	}
}

// staticEmbed returns the same unit vector for every text.
func staticEmbed(vec []float32) EmbedFunc {
	return func(context.Context, string) ([]float32, error) {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
}

func TestUpsertEnqueuesEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("insert and update enqueue, unchanged does not", func(t *testing.T) {
		svc, err := New(Config{}, nil, staticEmbed([]float32{1, 0}), nil)
		require.NoError(t, err)

		res, err := svc.Upsert(ctx, testDoc("d1", "deploy api", "rolling deploy", []string{"deploy"}))
		require.NoError(t, err)
		assert.Equal(t, store.Inserted, res)
		assert.Equal(t, 1, svc.Queue().Len())

		res, err = svc.Upsert(ctx, testDoc("d1", "deploy api", "rolling deploy", []string{"deploy"}))
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, res)
		assert.Equal(t, 1, svc.Queue().Len(), "unchanged upsert must not enqueue")

		changed := testDoc("d1", "deploy api v3", "rolling deploy", []string{"deploy"})
		res, err = svc.Upsert(ctx, changed)
		require.NoError(t, err)
		assert.Equal(t, store.Updated, res)
		assert.Equal(t, 2, svc.Queue().Len())
	})

	t.Run("no embedder means no jobs", func(t *testing.T) {
		svc, err := New(Config{}, nil, nil, nil)
		require.NoError(t, err)

		_, err = svc.Upsert(ctx, testDoc("d1", "deploy api", "rolling deploy", nil))
		require.NoError(t, err)
		assert.Equal(t, 0, svc.Queue().Len())
	})

	t.Run("missing id rejected", func(t *testing.T) {
		svc, err := New(Config{}, nil, nil, nil)
		require.NoError(t, err)
		_, err = svc.Upsert(ctx, &document.Document{Title: "no id"})
		assert.ErrorIs(t, err, store.ErrMissingID)
	})
}

func TestEmbedWorkerEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, err := New(Config{}, nil, staticEmbed([]float32{0.6, 0.8}), nil)
	require.NoError(t, err)

	for _, d := range []*document.Document{
		testDoc("d1", "deploy api", "rolling deploy of the api", []string{"deploy"}),
		testDoc("d2", "deploy worker", "rolling deploy of the worker", []string{"deploy"}),
	} {
		_, err := svc.Upsert(ctx, d)
		require.NoError(t, err)
	}

	w, err := NewWorker(svc, nil,
		queue.WithPollInterval(10*time.Millisecond),
		queue.WithRateLimit(1000, 100),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(svc.Queue().List(queue.StatusDone)) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, svc.Queue().List(queue.StatusDone), 2, "embed jobs did not complete")

	// Both documents now carry identical embeddings, so the embedding
	// tier matches them at cosine 1.
	matches, err := svc.FindSimilar(ctx, "d1", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "d2", matches[0].Doc.ID)
	assert.Equal(t, rank.MatchEmbedding, matches[0].Type)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestFindSimilarWithoutEmbeddings(t *testing.T) {
	ctx := context.Background()
	svc, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)

	for _, d := range []*document.Document{
		testDoc("d1", "postgres migration failed", "schema migration rolled back", []string{"postgres"}),
		testDoc("d2", "postgres migration retry", "schema migration second attempt", []string{"postgres"}),
		testDoc("d3", "frontend styling", "css grid cleanup", []string{"css"}),
	} {
		_, err := svc.Upsert(ctx, d)
		require.NoError(t, err)
	}

	matches, err := svc.FindSimilar(ctx, "d1", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "d2", matches[0].Doc.ID)
	assert.Equal(t, rank.MatchTFIDF, matches[0].Type)

	_, err = svc.FindSimilar(ctx, "missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)

	for _, d := range []*document.Document{
		testDoc("d1", "postgres migration failed", "schema migration rolled back", []string{"postgres"}),
		testDoc("d2", "frontend styling", "css grid cleanup", []string{"css"}),
	} {
		_, err := svc.Upsert(ctx, d)
		require.NoError(t, err)
	}

	results, err := svc.Search(ctx, "postgres migration", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "d1", results[0].Doc.ID)

	// Repeated query served through the vector cache gives the same
	// answer.
	again, err := svc.Search(ctx, "postgres migration", 5)
	require.NoError(t, err)
	require.Len(t, again, len(results))
	assert.Equal(t, results[0].Doc.ID, again[0].Doc.ID)
	assert.InDelta(t, results[0].Score, again[0].Score, 1e-12)

	// An upsert rebuilds the index; searching still works against the
	// new generation.
	_, err = svc.Upsert(ctx, testDoc("d3", "postgres tuning", "vacuum settings", []string{"postgres"}))
	require.NoError(t, err)
	results, err = svc.Search(ctx, "postgres migration", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestScanForPII(t *testing.T) {
	svc, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)

	findings := svc.ScanForPII(context.Background(), "contact me at a@b.com or 4111111111111111")
	require.Len(t, findings, 2)
	assert.Equal(t, "email", findings[0].Kind)
	assert.Equal(t, "credit_card_visa", findings[1].Kind)
}

func TestGetListDelete(t *testing.T) {
	ctx := context.Background()
	svc, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, testDoc("d1", "deploy api", "rolling deploy", []string{"deploy"}))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "deploy api", got.Title)

	assert.Len(t, svc.List(ctx, store.Filter{}), 1)
	assert.Empty(t, svc.List(ctx, store.Filter{Status: "archived"}))

	require.NoError(t, svc.Delete(ctx, "d1"))
	_, err = svc.Get(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "d1"), ErrNotFound)
}
