package measurement

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolog/pkg/contracts/domain"
)

func ptr[T any](v T) *T { return &v }

func sampleTable() *Table {
	return &Table{
		Layout: domain.LayoutStructured,
		Rows: []domain.Measurement{
			{Date: ptr("2024-01-02"), Serial: "S1", OrderID: "OF2", DimensionName: "R2", Measured: 1, Nominal: 1, ToleranceMin: 0.9, ToleranceMax: 1.1},
			{Date: nil, Serial: "S1", OrderID: "OF1", DimensionName: "R1", Measured: 2.5, Nominal: 2, ToleranceMin: 1.9, ToleranceMax: 2.1},
			{Date: ptr("2024-01-03"), Serial: "S2", OrderID: "OF2", DimensionName: "R2", Measured: 1.05, Nominal: 1, ToleranceMin: 0.9, ToleranceMax: 1.1},
		},
	}
}

func TestTable_Accessors(t *testing.T) {
	table := sampleTable()

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"R2", "R1"}, table.DimensionNames())
	assert.Equal(t, []string{"OF1", "OF2"}, table.Orders())
	assert.Len(t, table.FilterOrder(ptr("OF2")), 2)
	assert.Len(t, table.FilterOrder(nil), 3)
	assert.Empty(t, table.FilterOrder(ptr("OF9")))

	var empty *Table
	assert.Equal(t, 0, empty.Len())
}

func TestTable_Clone(t *testing.T) {
	table := sampleTable()
	clone := table.Clone()

	*clone.Rows[0].Date = "1999-01-01"
	clone.Rows[1].Measured = 0

	assert.Equal(t, "2024-01-02", *table.Rows[0].Date)
	assert.Equal(t, 2.5, table.Rows[1].Measured)
}

func TestTable_WriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().WriteTSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(domain.CanonicalColumns(), "\t"), lines[0])
	assert.Equal(t, "2024-01-02\tS1\tOF2\tR2\t1\t1\t0.9\t1.1", lines[1])
	assert.Equal(t, "\tS1\tOF1\tR1\t2.5\t2\t1.9\t2.1", lines[2])
}

func TestTable_ColumnsWithPosition(t *testing.T) {
	table := sampleTable()
	table.HasPosition = true
	table.Rows[0].Position = ptr(3.5)

	assert.Equal(t, domain.ColumnPosition, table.Columns()[len(table.Columns())-1])
	records := table.Records()
	assert.Equal(t, "3.5", records[1][8])
	assert.Equal(t, "", records[2][8])
}
