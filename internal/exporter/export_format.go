package exporter

import (
	"fmt"
	"strings"
)

// Format is an export encoding of the measurement table.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
	FormatCSV   Format = "csv"
	FormatArrow Format = "arrow"
)

// ParseFormat reads a format name, defaulting to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatTSV, FormatCSV, FormatArrow:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the HTTP media type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatArrow:
		return "application/vnd.apache.arrow.stream"
	default:
		return "application/json"
	}
}

// Extension returns the file extension of the format, without dot.
func (f Format) Extension() string {
	return string(f)
}
