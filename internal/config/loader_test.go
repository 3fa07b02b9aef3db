package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("THREADBANK_CONFIG_DIR", dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadWithFile(t *testing.T) {
	t.Run("yaml values", func(t *testing.T) {
		path := writeConfig(t, `
server:
  http_port: 8088
logging:
  level: debug
  format: console
queue:
  max_retries: 5
  base_delay: 250ms
`)
		cfg, err := LoadWithFile(path)
		require.NoError(t, err)

		assert.Equal(t, 8088, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.Equal(t, 5, cfg.Queue.MaxRetries)
		assert.Equal(t, 250*time.Millisecond, cfg.Queue.BaseDelay.Duration())
		// Untouched sections still get defaults.
		assert.Equal(t, 100, cfg.Index.MaxTerms)
	})

	t.Run("env overrides yaml", func(t *testing.T) {
		path := writeConfig(t, "server:\n  http_port: 8088\n")
		t.Setenv("SERVER_HTTP_PORT", "9999")

		cfg, err := LoadWithFile(path)
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("THREADBANK_CONFIG_DIR", dir)

		cfg, err := LoadWithFile(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 9180, cfg.Server.Port)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  level: shouty\n")
		_, err := LoadWithFile(path)
		assert.Error(t, err)
	})

	t.Run("world-readable file rejected", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("THREADBANK_CONFIG_DIR", dir)
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 8088\n"), 0644))

		_, err := LoadWithFile(path)
		assert.Error(t, err)
	})

	t.Run("path outside allowed dirs rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0600))

		_, err := LoadWithFile(path)
		assert.Error(t, err)
	})
}

func TestEnvToKey(t *testing.T) {
	assert.Equal(t, "server.http_port", envToKey("SERVER_HTTP_PORT"))
	assert.Equal(t, "queue.max_retries", envToKey("QUEUE_MAX_RETRIES"))
	assert.Equal(t, "embeddings.api_key", envToKey("EMBEDDINGS_API_KEY"))
	assert.Equal(t, "path", envToKey("PATH"))
}
