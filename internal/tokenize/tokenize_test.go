package tokenize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Run("splits snake_case and camelCase identifiers", func(t *testing.T) {
		got := Tokenize("getUserData_v2")
		assert.Equal(t, []string{"user", "data"}, got[1:])
		assert.Equal(t, "get", got[0])
	})

	t.Run("drops version-style tokens", func(t *testing.T) {
		// "v2" is a single letter followed by digits and carries no signal.
		assert.NotContains(t, Tokenize("release v2 shipped"), "v2")
	})

	t.Run("keeps digit-bearing identifiers whole", func(t *testing.T) {
		got := Tokenize("computed the sha256 digest")
		assert.Contains(t, got, "sha256")
	})

	t.Run("splits PascalCase with acronym runs", func(t *testing.T) {
		got := Tokenize("HTTPServerConfig")
		assert.Equal(t, []string{"http", "server", "config"}, got)
	})

	t.Run("drops stopwords and filler", func(t *testing.T) {
		got := Tokenize("yeah okay so the deployment failed again lol")
		assert.Equal(t, []string{"deployment", "failed", "again"}, got)
	})

	t.Run("drops short and purely numeric tokens", func(t *testing.T) {
		got := Tokenize("error 404 on x node 12345")
		assert.Equal(t, []string{"error", "node"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, Tokenize(""))
		assert.Nil(t, Tokenize("  \t\n  "))
		assert.Nil(t, Tokenize("a 1 2 3"))
	})

	t.Run("deterministic", func(t *testing.T) {
		in := "Retry backoff exploded after rateLimitExceeded"
		assert.Equal(t, Tokenize(in), Tokenize(in))
	})

	t.Run("idempotent on its own output", func(t *testing.T) {
		first := Tokenize("QueueWorker claimed ingest_job for document 42")
		second := Tokenize(strings.Join(first, " "))
		assert.Equal(t, first, second)
	})
}
