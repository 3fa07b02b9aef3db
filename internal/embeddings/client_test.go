package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientEmbed(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "my-model", req.Model)
			assert.Equal(t, "hello world", req.Input)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}},
			})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "test-key", "my-model", time.Second, nil)
		vec, err := c.Embed(context.Background(), "hello world")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2}, vec)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "", "", time.Second, nil)
		_, err := c.Embed(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("empty payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "", "", time.Second, nil)
		_, err := c.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})
}
