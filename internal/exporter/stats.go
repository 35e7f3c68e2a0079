package exporter

import (
	"io"

	"metrolog/pkg/contracts/domain"
)

// Decimals used for statistics cells.
const statDecimals = 4

// StatHeaders are the column names of the statistics export.
var StatHeaders = []string{
	"Nom_Cote",
	"OF",
	"N Mesures",
	"Moyenne",
	"Écart-type",
	"Écart moyen absolu",
	"Cp",
	"Cpk",
	"% hors tolérance",
	"Nominal",
	"Tolérance_Min",
	"Tolérance_Max",
	"Bornes cohérentes",
}

// StatRecords converts summaries to CSV records. Undefined values are empty
// cells.
func StatRecords(summaries []domain.StatSummary) [][]string {
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		order := ""
		if s.OrderID != nil {
			order = *s.OrderID
		}
		records = append(records, []string{
			s.Dimension,
			order,
			formatInt(s.N),
			formatRounded(s.Mean, statDecimals),
			formatOptional(s.StdDev, statDecimals),
			formatRounded(s.MeanAbsDeviation, statDecimals),
			formatOptional(s.Cp, 2),
			formatOptional(s.Cpk, 2),
			formatRounded(s.PctOutOfTolerance, 2),
			formatFloat(s.Nominal),
			formatFloat(s.ToleranceMin),
			formatFloat(s.ToleranceMax),
			formatBool(s.BoundsConsistent),
		})
	}
	return records
}

// WriteStatsCSV writes summaries as CSV with a BOM.
func WriteStatsCSV(w io.Writer, summaries []domain.StatSummary) error {
	return Write(w, WriteOptions{
		Headers:   StatHeaders,
		Records:   StatRecords(summaries),
		BOMPrefix: true,
	})
}
