package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"metrolog/internal/measurement"
	"metrolog/pkg/contracts/domain"
)

// MeasurementSchema is the Arrow schema of the canonical measurement table.
var MeasurementSchema = arrow.NewSchema([]arrow.Field{
	{Name: domain.ColumnDate, Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	{Name: domain.ColumnSerial, Type: arrow.BinaryTypes.String},
	{Name: domain.ColumnOrder, Type: arrow.BinaryTypes.String},
	{Name: domain.ColumnDimension, Type: arrow.BinaryTypes.String},
	{Name: domain.ColumnMeasured, Type: arrow.PrimitiveTypes.Float64},
	{Name: domain.ColumnNominal, Type: arrow.PrimitiveTypes.Float64},
	{Name: domain.ColumnToleranceMin, Type: arrow.PrimitiveTypes.Float64},
	{Name: domain.ColumnToleranceMax, Type: arrow.PrimitiveTypes.Float64},
	{Name: domain.ColumnPosition, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// WriteArrow writes rows as one Arrow IPC stream record batch.
func WriteArrow(w io.Writer, rows []domain.Measurement) error {
	pool := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(pool, MeasurementSchema)
	defer builder.Release()

	dates := builder.Field(0).(*array.Date32Builder)
	serials := builder.Field(1).(*array.StringBuilder)
	orders := builder.Field(2).(*array.StringBuilder)
	names := builder.Field(3).(*array.StringBuilder)
	measured := builder.Field(4).(*array.Float64Builder)
	nominal := builder.Field(5).(*array.Float64Builder)
	tolMin := builder.Field(6).(*array.Float64Builder)
	tolMax := builder.Field(7).(*array.Float64Builder)
	positions := builder.Field(8).(*array.Float64Builder)

	for _, m := range rows {
		if d, ok := parseISODate(m.Date); ok {
			dates.Append(arrow.Date32FromTime(d))
		} else {
			dates.AppendNull()
		}
		serials.Append(m.Serial)
		orders.Append(m.OrderID)
		names.Append(m.DimensionName)
		measured.Append(m.Measured)
		nominal.Append(m.Nominal)
		tolMin.Append(m.ToleranceMin)
		tolMax.Append(m.ToleranceMax)
		if m.Position != nil {
			positions.Append(*m.Position)
		} else {
			positions.AppendNull()
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(MeasurementSchema), ipc.WithAllocator(pool))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close arrow stream: %w", err)
	}
	return nil
}

// WriteTableArrow writes a measurement table as an Arrow IPC stream.
func WriteTableArrow(w io.Writer, table *measurement.Table) error {
	return WriteArrow(w, table.Rows)
}

func parseISODate(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
