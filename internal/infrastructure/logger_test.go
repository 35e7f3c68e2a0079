package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolog/internal/config"
)

func decodeLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestInitializeLogger_WritesFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "metrolog.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: logFile})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("table parsed", "rows", 42)
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entries := decodeLines(t, content)
	require.Len(t, entries, 1)
	assert.Equal(t, "table parsed", entries[0]["msg"])
	assert.Equal(t, float64(42), entries[0]["rows"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Contains(t, entries[0], "source")
	assert.Same(t, logger, GetLogger())
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestContextIdentifiersInjected(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "trace-123")
	ctx = WithSessionID(ctx, "session-9")
	logger.InfoContext(ctx, "ingest")
	logger.Info("no context ids")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, "trace-123", entries[0]["trace_id"])
	assert.Equal(t, "session-9", entries[0]["session_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level   string
		emitted []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warning", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
		{"bogus", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level}, &buf)
			require.NoError(t, err)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			var levels []string
			for _, e := range decodeLines(t, buf.Bytes()) {
				levels = append(levels, e["level"].(string))
			}
			assert.Equal(t, tt.emitted, levels)
		})
	}
}

func TestNewLogger_BothOutputs(t *testing.T) {
	defer CloseLogFile()

	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "both.log")
	logger, err := NewLogger(config.LoggingConfig{Output: "both", FilePath: logFile}, &buf)
	require.NoError(t, err)

	logger.Warn("slot already used")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "slot already used")
	assert.Contains(t, string(content), "slot already used")
}

func TestContextIdentifiers(t *testing.T) {
	ctx := WithSessionID(WithTraceID(context.Background(), "t-1"), "s-1")
	assert.Equal(t, "t-1", GetTraceID(ctx))
	assert.Equal(t, "s-1", GetSessionID(ctx))
	assert.Empty(t, GetSessionID(context.Background()))
}
