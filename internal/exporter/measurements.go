package exporter

import (
	"io"

	"metrolog/internal/measurement"
	"metrolog/pkg/contracts/domain"
)

// WriteMeasurementsCSV writes rows as comma-separated text with a BOM, in the
// canonical column order. The position column is written when withPosition
// is set.
func WriteMeasurementsCSV(w io.Writer, rows []domain.Measurement, withPosition bool) error {
	table := &measurement.Table{Rows: rows, HasPosition: withPosition}
	records := table.Records()
	return Write(w, WriteOptions{
		Headers:   records[0],
		Records:   records[1:],
		BOMPrefix: true,
	})
}

// WriteMeasurementsTSV writes rows in the structured paste layout, readable
// back by measurement.Parse.
func WriteMeasurementsTSV(w io.Writer, rows []domain.Measurement, withPosition bool) error {
	table := &measurement.Table{Rows: rows, HasPosition: withPosition}
	return table.WriteTSV(w)
}
