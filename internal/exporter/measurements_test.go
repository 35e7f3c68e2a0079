package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolog/internal/measurement"
	"metrolog/internal/shared/testutil"
	"metrolog/pkg/contracts/domain"
)

func parsedR1(t *testing.T) *measurement.Table {
	t.Helper()
	table, err := measurement.Parse(context.Background(), testutil.StructuredTSV(false, testutil.R1Rows("OF1")...))
	require.NoError(t, err)
	return table
}

func TestWriteMeasurementsCSV(t *testing.T) {
	table := parsedR1(t)

	var buf bytes.Buffer
	require.NoError(t, WriteMeasurementsCSV(&buf, table.Rows, false))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, domain.CanonicalColumns(), records[0])
	assert.Equal(t, []string{"2024-03-12", "SN2", "OF1", "R1", "10.02", "10", "9.9", "10.1"}, records[2])
}

func TestWriteMeasurementsTSV_ParsesBack(t *testing.T) {
	table := parsedR1(t)

	var buf bytes.Buffer
	require.NoError(t, WriteMeasurementsTSV(&buf, table.Rows, false))

	again, err := measurement.Parse(context.Background(), buf.String())
	require.NoError(t, err)
	assert.Equal(t, table.Rows, again.Rows)
}

func TestWriteArrow(t *testing.T) {
	table := parsedR1(t)
	table.Rows[1].Date = nil
	pos := 42.5
	table.Rows[2].Position = &pos

	var buf bytes.Buffer
	require.NoError(t, WriteTableArrow(&buf, table))

	reader, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer reader.Release()

	assert.True(t, reader.Schema().Equal(MeasurementSchema))
	require.True(t, reader.Next())
	record := reader.Record()
	assert.Equal(t, int64(4), record.NumRows())

	names := record.Column(3).(*array.String)
	assert.Equal(t, "R1", names.Value(0))

	measured := record.Column(4).(*array.Float64)
	assert.Equal(t, 9.98, measured.Value(2))

	dates := record.Column(0).(*array.Date32)
	assert.True(t, dates.IsNull(1))
	assert.Equal(t, "2024-03-12", dates.Value(0).ToTime().Format("2006-01-02"))

	positions := record.Column(8).(*array.Float64)
	assert.True(t, positions.IsNull(0))
	assert.Equal(t, 42.5, positions.Value(2))

	assert.False(t, reader.Next())
}

func TestWriteArrow_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, nil))

	reader, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer reader.Release()
	require.True(t, reader.Next())
	assert.Equal(t, int64(0), reader.Record().NumRows())
}
