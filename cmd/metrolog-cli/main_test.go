package main

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

	"metrolog/internal/shared/testutil"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_PrintsStatistics(t *testing.T) {
	rows := append(testutil.R1Rows("OF1"), testutil.R1Rows("OF2")...)
	input := writeInput(t, "mesures.tsv", testutil.StructuredTSV(false, rows...))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-in", input, "-by-order"}, &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Nom_Cote\tOF\t"))
	assert.True(t, strings.HasPrefix(lines[1], "R1\tOF1\t4\t"))
	assert.Contains(t, stderr.String(), "loaded 8 rows, 1 dimensions")
}

func TestRun_WritesExports(t *testing.T) {
	input := writeInput(t, "raw.tsv", testutil.SampleRawFixture().TSV())
	base := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-in", input,
		"-base", base,
		"-of", "OF100",
		"-stats", "stats.csv",
		"-registry", "registre.json",
	}, &stdout, &stderr)
	require.NoError(t, err)

	statsCSV, err := os.ReadFile(filepath.Join(base, "data", "exports", "stats.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(statsCSV, []byte{0xEF, 0xBB, 0xBF}))

	doc, err := os.ReadFile(filepath.Join(base, "data", "exports", "registre.json"))
	require.NoError(t, err)
	var registry map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &registry))
	assert.Len(t, registry, 4)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing input flag", nil},
		{"missing file", []string{"-in", filepath.Join(t.TempDir(), "none.tsv")}},
		{"bad bounds", []string{"-in", writeInput(t, "a.tsv", "x"), "-bounds", "median"}},
		{"unsupported extension", []string{"-in", writeInput(t, "a.pdf", "x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}
