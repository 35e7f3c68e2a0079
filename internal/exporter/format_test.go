package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"zero value", 0, "0"},
		{"integer", 123, "123"},
		{"negative integer", -456, "-456"},
		{"decimal", 10.02, "10.02"},
		{"small decimal", 0.001234, "0.001234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input))
		})
	}
}

func TestFormatOptional(t *testing.T) {
	v := 1.95163
	assert.Equal(t, "", formatOptional(nil, 2))
	assert.Equal(t, "1.95", formatOptional(&v, 2))
	assert.Equal(t, "1.9516", formatOptional(&v, 4))
}

func TestFormatIntAndBool(t *testing.T) {
	assert.Equal(t, "42", formatInt(42))
	assert.Equal(t, "true", formatBool(true))
	assert.Equal(t, "false", formatBool(false))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"TSV", FormatTSV, false},
		{" csv ", FormatCSV, false},
		{"arrow", FormatArrow, false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/vnd.apache.arrow.stream", FormatArrow.ContentType())
	assert.Equal(t, "tsv", FormatTSV.Extension())
}
