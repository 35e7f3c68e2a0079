package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("table parsed", slog.Int("rows", 12))
		logger.Error("upload rejected", slog.String("reason", "schema"))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("table parsed"))
		assert.True(t, handler.ContainsAttr("reason", "schema"))
	})

	t.Run("derived loggers share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		component := logger.With(slog.String("component", "registry"))

		component.Warn("group dropped")

		assert.Equal(t, 1, handler.Count())
		assert.True(t, handler.ContainsAttr("component", "registry"))
	})

	t.Run("groups prefix keys", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.WithGroup("stats").Info("summary", slog.Int("n", 3))

		assert.True(t, handler.ContainsAttr("stats.n", int64(3)))
	})

	t.Run("filters by level and clears", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}
