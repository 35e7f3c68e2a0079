package measurement

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"metrolog/pkg/contracts/domain"
)

// Table is the canonical measurement table of one parsed batch.
type Table struct {
	Layout domain.Layout        `json:"layout"`
	Rows   []domain.Measurement `json:"rows"`
	// HasPosition is true when the input carried a position column.
	HasPosition bool `json:"has_position"`
}

// Len returns the number of measurements.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Columns returns the serialised column order.
func (t *Table) Columns() []string {
	cols := domain.CanonicalColumns()
	if t.HasPosition {
		cols = append(cols, domain.ColumnPosition)
	}
	return cols
}

// DimensionNames returns the distinct dimension names in order of first appearance.
func (t *Table) DimensionNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range t.Rows {
		if _, ok := seen[m.DimensionName]; ok {
			continue
		}
		seen[m.DimensionName] = struct{}{}
		names = append(names, m.DimensionName)
	}
	return names
}

// Orders returns the distinct manufacturing orders, sorted.
func (t *Table) Orders() []string {
	seen := make(map[string]struct{})
	var orders []string
	for _, m := range t.Rows {
		if _, ok := seen[m.OrderID]; ok {
			continue
		}
		seen[m.OrderID] = struct{}{}
		orders = append(orders, m.OrderID)
	}
	sort.Strings(orders)
	return orders
}

// FilterOrder returns the rows of one manufacturing order. A nil order
// returns every row.
func (t *Table) FilterOrder(order *string) []domain.Measurement {
	if order == nil {
		return append([]domain.Measurement(nil), t.Rows...)
	}
	var out []domain.Measurement
	for _, m := range t.Rows {
		if m.OrderID == *order {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Layout: t.Layout, HasPosition: t.HasPosition, Rows: make([]domain.Measurement, len(t.Rows))}
	for i, m := range t.Rows {
		if m.Date != nil {
			d := *m.Date
			m.Date = &d
		}
		if m.Position != nil {
			p := *m.Position
			m.Position = &p
		}
		out.Rows[i] = m
	}
	return out
}

// Records returns the table as string records in column order, header first.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Columns())
	for _, m := range t.Rows {
		date := ""
		if m.Date != nil {
			date = *m.Date
		}
		rec := []string{
			date,
			m.Serial,
			m.OrderID,
			m.DimensionName,
			FormatDecimal(m.Measured),
			FormatDecimal(m.Nominal),
			FormatDecimal(m.ToleranceMin),
			FormatDecimal(m.ToleranceMax),
		}
		if t.HasPosition {
			pos := ""
			if m.Position != nil {
				pos = FormatDecimal(*m.Position)
			}
			rec = append(rec, pos)
		}
		records = append(records, rec)
	}
	return records
}

// WriteTSV writes the table as structured tab-separated text. Parsing the
// output yields the same table.
func (t *Table) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write measurement table: %w", err)
	}
	return nil
}
