package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("valid levels and formats", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			for _, format := range []string{"json", "console"} {
				logger, err := New(level, format)
				require.NoError(t, err, "%s/%s", level, format)
				require.NotNil(t, logger)
			}
		}
	})

	t.Run("level gates output", func(t *testing.T) {
		logger, err := New("warn", "json")
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New("shouty", "json")
		assert.Error(t, err)
	})
}
