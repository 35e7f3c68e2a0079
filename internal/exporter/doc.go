// Package exporter writes measurement tables and statistics in the formats
// operators download: CSV with a UTF-8 BOM for spreadsheet applications,
// structured tab-separated text for re-pasting, and Apache Arrow IPC streams
// for analysis tools.
//
// Example usage:
//
//	var buf bytes.Buffer
//	err := exporter.WriteStatsCSV(&buf, summaries)
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	path, err := writer.WriteFile("stats.csv", exporter.WriteOptions{
//		Headers:   exporter.StatHeaders,
//		Records:   exporter.StatRecords(summaries),
//		BOMPrefix: true,
//	})
package exporter
