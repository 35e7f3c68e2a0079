package exporter

import (
	"strconv"
)

// formatFloat writes f with the shortest exact representation.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatRounded writes f with a fixed number of decimals.
func formatRounded(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// formatOptional writes an empty cell for undefined values.
func formatOptional(f *float64, decimals int) string {
	if f == nil {
		return ""
	}
	return formatRounded(*f, decimals)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
