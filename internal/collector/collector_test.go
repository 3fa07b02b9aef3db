package collector

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/threadbank/internal/corpus"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newService(t *testing.T) corpus.Service {
	t.Helper()
	svc, err := corpus.New(corpus.Config{}, nil, nil, nil)
	require.NoError(t, err)
	return svc
}

const docJSON = `{
	"id": "thread-1",
	"title": "postgres migration failed",
	"tags": ["postgres"],
	"category": "infra",
	"summary": "schema migration rolled back",
	"status": "active",
	"message_count": 12
}`

func TestCollectorIngestsDroppedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := newService(t)

	c, err := New(dir, svc, nil)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	path := filepath.Join(dir, "thread-1.json")
	require.NoError(t, os.WriteFile(path, []byte(docJSON), 0644))

	waitFor(t, 2*time.Second, func() bool {
		_, err := svc.Get(ctx, "thread-1")
		return err == nil
	})

	doc, err := svc.Get(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "postgres migration failed", doc.Title)
	assert.Equal(t, 12, doc.MessageCount)

	// The spool file is renamed out of the way.
	waitFor(t, 2*time.Second, func() bool {
		_, err := os.Stat(path + ".done")
		return err == nil
	})
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCollectorSweepsExistingFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := newService(t)

	// Dropped before the collector starts.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thread-1.json"), []byte(docJSON), 0644))

	c, err := New(dir, svc, nil)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, err := svc.Get(ctx, "thread-1")
		return err == nil
	})
}

func TestCollectorStopIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, err := New(t.TempDir(), newService(t), nil)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Stop()
		}()
	}
	wg.Wait()

	// And once more after everything settled.
	c.Stop()
}

func TestCollectorRejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	svc := newService(t)

	c, err := New(dir, svc, nil)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		waitFor(t, 2*time.Second, func() bool {
			_, err := os.Stat(path + ".err")
			return err == nil
		})
	})

	t.Run("missing id", func(t *testing.T) {
		path := filepath.Join(dir, "anonymous.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"title":"no id"}`), 0644))

		waitFor(t, 2*time.Second, func() bool {
			_, err := os.Stat(path + ".err")
			return err == nil
		})
	})

	t.Run("non-spool files ignored", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

		time.Sleep(100 * time.Millisecond)
		_, err := os.Stat(path)
		assert.NoError(t, err, "non-json file must be left alone")
	})
}
