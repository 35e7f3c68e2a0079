// Package shared holds helpers used by more than one package of the
// measurement dashboard.
//
// The testutil subpackage provides:
//
//   - a capturing slog handler for asserting on structured logs
//   - builders for tab-separated measurement tables in both layouts
//   - workbook builders for spreadsheet upload tests
//
// Nothing here carries dashboard logic; packages under internal/ must not
// depend on shared outside of their _test.go files.
package shared
