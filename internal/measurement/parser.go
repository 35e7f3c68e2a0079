package measurement

import (
	"context"
	"fmt"
	"strings"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

// Raw layout offsets (0-based) of the measuring-machine export.
const (
	rawNameRow    = 2
	rawMinRow     = 5
	rawAimRow     = 6
	rawMaxRow     = 7
	rawFirstData  = 10
	rawFirstValue = 7

	rawDateCol   = 0
	rawSerialCol = 1
	rawOrderCol  = 6

	rawMinRows = 12
	rawMinCols = 10
)

// Header cells that mark an input as structured even when the grid is large.
var structuredSentinels = []string{domain.ColumnDimension, "FCollAvg"}

// Accepted names of the optional position column, compared case-insensitively.
var positionColumns = []string{"hauteur", "position", "z"}

// Rows between two context checks.
const ctxCheckInterval = 256

// Parse detects the layout of tab-separated text and normalises it into a
// Table.
func Parse(ctx context.Context, text string) (*Table, error) {
	return ParseDelimited(ctx, text, '\t')
}

// ParseDelimited is Parse for text separated by comma, such as a CSV export.
func ParseDelimited(ctx context.Context, text string, comma rune) (*Table, error) {
	g, err := readGrid(text, comma)
	if err != nil {
		return nil, err
	}
	return parseGrid(ctx, g)
}

// DetectLayout reports which layout Parse would use for text.
func DetectLayout(text string) (domain.Layout, error) {
	g, err := readGrid(text, '\t')
	if err != nil {
		return "", err
	}
	return detect(g), nil
}

func parseGrid(ctx context.Context, g *grid) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if detect(g) == domain.LayoutRaw {
		return parseRaw(ctx, g)
	}
	return parseStructured(ctx, g)
}

func detect(g *grid) domain.Layout {
	if len(g.rows) > rawMinRows && g.width > rawMinCols && !hasSentinel(g.rows[0]) {
		return domain.LayoutRaw
	}
	return domain.LayoutStructured
}

func hasSentinel(header []string) bool {
	for _, cell := range header {
		cell = strings.TrimSpace(cell)
		for _, s := range structuredSentinels {
			if cell == s {
				return true
			}
		}
	}
	return false
}

type rawColumn struct {
	index   int
	name    string
	nominal float64
	min     float64
	max     float64
}

func parseRaw(ctx context.Context, g *grid) (*Table, error) {
	var cols []rawColumn
	for c := rawFirstValue; c < g.width; c++ {
		name := g.cell(rawNameRow, c)
		if name == "" {
			continue
		}
		col := rawColumn{index: c, name: name}
		var err error
		if col.min, err = g.decimal(rawMinRow, c, name); err != nil {
			return nil, err
		}
		if col.nominal, err = g.decimal(rawAimRow, c, name); err != nil {
			return nil, err
		}
		if col.max, err = g.decimal(rawMaxRow, c, name); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, apierrors.NewSchemaError(domain.CanonicalColumns(), nil)
	}

	t := &Table{Layout: domain.LayoutRaw}
	for r := rawFirstData; r < len(g.rows); r++ {
		if (r-rawFirstData)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if g.blankRow(r) {
			continue
		}

		date := ParseDate(g.cell(r, rawDateCol))
		serial := g.cell(r, rawSerialCol)
		order := g.cell(r, rawOrderCol)

		for _, col := range cols {
			raw := g.cell(r, col.index)
			if raw == "" {
				continue
			}
			v, err := ParseDecimal(raw)
			if err != nil {
				return nil, apierrors.NewParseError(g.lines[r], col.name, raw, err)
			}
			t.Rows = append(t.Rows, domain.Measurement{
				Date:          cloneString(date),
				Serial:        serial,
				OrderID:       order,
				DimensionName: col.name,
				Measured:      v,
				Nominal:       col.nominal,
				ToleranceMin:  col.min,
				ToleranceMax:  col.max,
			})
		}
	}
	return t, nil
}

// structuredColumns maps canonical column names to their index in the input.
type structuredColumns struct {
	index    map[string]int
	position int
}

func readHeader(header []string) (*structuredColumns, error) {
	found := make([]string, len(header))
	for i, h := range header {
		found[i] = strings.TrimSpace(h)
	}
	for len(found) > 0 && found[len(found)-1] == "" {
		found = found[:len(found)-1]
	}

	canonical := domain.CanonicalColumns()
	expected := make(map[string]struct{}, len(canonical))
	for _, c := range canonical {
		expected[c] = struct{}{}
	}

	cols := &structuredColumns{index: make(map[string]int, len(canonical)), position: -1}
	for i, name := range found {
		if _, ok := expected[name]; ok {
			if _, dup := cols.index[name]; dup {
				return nil, apierrors.NewSchemaError(canonical, found)
			}
			cols.index[name] = i
			continue
		}
		if isPositionColumn(name) && cols.position < 0 {
			cols.position = i
			continue
		}
		return nil, apierrors.NewSchemaError(canonical, found)
	}
	if len(cols.index) != len(canonical) {
		return nil, apierrors.NewSchemaError(canonical, found)
	}
	return cols, nil
}

func isPositionColumn(name string) bool {
	name = strings.ToLower(name)
	for _, p := range positionColumns {
		if name == p {
			return true
		}
	}
	return false
}

func parseStructured(ctx context.Context, g *grid) (*Table, error) {
	cols, err := readHeader(g.rows[0])
	if err != nil {
		return nil, err
	}

	t := &Table{Layout: domain.LayoutStructured, HasPosition: cols.position >= 0}
	for r := 1; r < len(g.rows); r++ {
		if r%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if g.blankRow(r) {
			continue
		}

		m := domain.Measurement{
			Date:          ParseDate(g.cell(r, cols.index[domain.ColumnDate])),
			Serial:        g.cell(r, cols.index[domain.ColumnSerial]),
			OrderID:       g.cell(r, cols.index[domain.ColumnOrder]),
			DimensionName: g.cell(r, cols.index[domain.ColumnDimension]),
		}
		if m.DimensionName == "" {
			return nil, apierrors.NewParseError(g.lines[r], domain.ColumnDimension, "", fmt.Errorf("dimension name is empty"))
		}

		numeric := []struct {
			column string
			dst    *float64
		}{
			{domain.ColumnMeasured, &m.Measured},
			{domain.ColumnNominal, &m.Nominal},
			{domain.ColumnToleranceMin, &m.ToleranceMin},
			{domain.ColumnToleranceMax, &m.ToleranceMax},
		}
		for _, f := range numeric {
			if *f.dst, err = g.decimal(r, cols.index[f.column], f.column); err != nil {
				return nil, err
			}
		}

		if cols.position >= 0 {
			if raw := g.cell(r, cols.position); raw != "" {
				pos, err := ParseDecimal(raw)
				if err != nil {
					return nil, apierrors.NewParseError(g.lines[r], domain.ColumnPosition, raw, err)
				}
				m.Position = &pos
			}
		}

		t.Rows = append(t.Rows, m)
	}
	return t, nil
}

func (g *grid) decimal(row, col int, column string) (float64, error) {
	raw := g.cell(row, col)
	v, err := ParseDecimal(raw)
	if err != nil {
		line := 0
		if row < len(g.lines) {
			line = g.lines[row]
		}
		return 0, apierrors.NewParseError(line, column, raw, err)
	}
	return v, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
