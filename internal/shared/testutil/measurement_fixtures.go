package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// StructuredHeader is the canonical header of the structured layout.
var StructuredHeader = []string{"Date", "Serial", "OF", "Nom_Cote", "Mesure", "Nominal", "Tolérance_Min", "Tolérance_Max"}

// FixtureRow is one line of a structured measurement fixture.
type FixtureRow struct {
	Date     string
	Serial   string
	OF       string
	Name     string
	Measured string
	Nominal  string
	Min      string
	Max      string
	Position string
}

func (r FixtureRow) cells(withPosition bool) []string {
	cells := []string{r.Date, r.Serial, r.OF, r.Name, r.Measured, r.Nominal, r.Min, r.Max}
	if withPosition {
		cells = append(cells, r.Position)
	}
	return cells
}

// StructuredTSV renders rows under the canonical header. When withPosition is
// true a Hauteur column is appended.
func StructuredTSV(withPosition bool, rows ...FixtureRow) string {
	header := append([]string(nil), StructuredHeader...)
	if withPosition {
		header = append(header, "Hauteur")
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r.cells(withPosition), "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// R1Rows returns four readings of R1 with mean 10.0025 and sample standard
// deviation 0.01708.
func R1Rows(of string) []FixtureRow {
	values := []string{"10,00", "10,02", "9,98", "10,01"}
	rows := make([]FixtureRow, len(values))
	for i, v := range values {
		rows[i] = FixtureRow{
			Date:     "12/03/2024",
			Serial:   "SN" + string(rune('1'+i)),
			OF:       of,
			Name:     "R1",
			Measured: v,
			Nominal:  "10",
			Min:      "9,9",
			Max:      "10,1",
		}
	}
	return rows
}

// RawPart is one data row of a raw machine export.
type RawPart struct {
	Date   string
	Serial string
	Plant  string
	OF     string
	Values []string
}

// RawFixture describes a raw machine export. Names, Min, Aim and Max are
// indexed by dimension column.
type RawFixture struct {
	Names []string
	Min   []string
	Aim   []string
	Max   []string
	Parts []RawPart
}

const (
	rawFirstValueCol = 7
	rawMinWidth      = 11
)

// Grid lays the fixture out at the machine export offsets.
func (f RawFixture) Grid() [][]string {
	width := rawFirstValueCol + len(f.Names)
	if width < rawMinWidth {
		width = rawMinWidth
	}
	row := func() []string { return make([]string, width) }

	grid := make([][]string, 10)
	for i := range grid {
		grid[i] = row()
	}
	grid[0][0] = "Rapport de contrôle"
	grid[1][0] = "Programme"
	grid[2][0] = "Caractéristique"
	grid[3][0] = "Unité"
	grid[4][0] = "Type"
	grid[5][0] = "Tol. inf"
	grid[6][0] = "Aim"
	grid[7][0] = "Tol. sup"
	grid[8][0] = "Ecart"
	grid[9][0] = "Date"
	grid[9][1] = "Serial"
	grid[9][5] = "Usine"
	grid[9][6] = "OF"

	for i, name := range f.Names {
		c := rawFirstValueCol + i
		grid[2][c] = name
		grid[3][c] = "mm"
		grid[5][c] = at(f.Min, i)
		grid[6][c] = at(f.Aim, i)
		grid[7][c] = at(f.Max, i)
	}

	for _, p := range f.Parts {
		r := row()
		r[0], r[1], r[5], r[6] = p.Date, p.Serial, p.Plant, p.OF
		for i, v := range p.Values {
			if rawFirstValueCol+i < width {
				r[rawFirstValueCol+i] = v
			}
		}
		grid = append(grid, r)
	}
	return grid
}

// TSV renders the fixture as pasted tab-separated text.
func (f RawFixture) TSV() string {
	var b strings.Builder
	for _, r := range f.Grid() {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteString("\r\n")
	}
	return b.String()
}

// SampleRawFixture returns four dimensions measured on three parts.
func SampleRawFixture() RawFixture {
	return RawFixture{
		Names: []string{"Diam ext A", "Rayon ANG1", "Rayon ANG2", "Epaisseur patin"},
		Min:   []string{"49,9", "9,9", "9,9", "2,95"},
		Aim:   []string{"50", "10", "10", "3"},
		Max:   []string{"50,1", "10,1", "10,1", "3,05"},
		Parts: []RawPart{
			{Date: "12/03/2024", Serial: "P001", Plant: "U1", OF: "OF100", Values: []string{"50,01", "10,02", "9,97", "3,01"}},
			{Date: "13/03/2024", Serial: "P002", Plant: "U1", OF: "OF100", Values: []string{"49,98", "10,05", "10,01", "2,99"}},
			{Date: "14/03/2024 08:30", Serial: "P003", Plant: "U1", OF: "OF200", Values: []string{"50,03", "10,00", "", "3,02"}},
		},
	}
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// WorkbookBytes builds an .xlsx with one sheet holding rows.
func WorkbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := append([]any(nil), r...)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// StringRows converts a string grid for WorkbookBytes.
func StringRows(grid [][]string) [][]any {
	out := make([][]any, len(grid))
	for i, r := range grid {
		out[i] = make([]any, len(r))
		for j, v := range r {
			out[i][j] = v
		}
	}
	return out
}
