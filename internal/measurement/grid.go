package measurement

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	apierrors "metrolog/internal/errors"
)

// ErrEmptyInput is returned when the input holds no non-blank row.
var ErrEmptyInput = errors.New("input contains no rows")

const utf8BOM = "\uFEFF"

// grid is a rectangular view over delimited input. lines holds the 1-based
// source line of each row for error reporting.
type grid struct {
	rows  [][]string
	lines []int
	width int
}

func (g *grid) cell(row, col int) string {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return ""
	}
	return strings.TrimSpace(g.rows[row][col])
}

func (g *grid) blankRow(row int) bool {
	for _, c := range g.rows[row] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readGrid splits text delimited by comma into rows. Blank lines are skipped
// the way spreadsheet pastes expect; ragged rows are kept as they are and read
// through grid.cell.
func readGrid(text string, comma rune) (*grid, error) {
	text = strings.TrimPrefix(text, utf8BOM)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	g := &grid{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, apierrors.NewParseError(csvErr.Line, "", "", csvErr.Err)
			}
			return nil, apierrors.NewParseError(0, "", "", err)
		}

		line, _ := r.FieldPos(0)
		g.append(record, line)
	}

	g.trimTrailingBlank()
	if len(g.rows) == 0 {
		return nil, apierrors.NewParseError(0, "", "", ErrEmptyInput)
	}
	return g, nil
}

func gridFromRows(rows [][]string) (*grid, error) {
	g := &grid{}
	for i, row := range rows {
		g.append(row, i+1)
	}
	g.trimTrailingBlank()
	if len(g.rows) == 0 {
		return nil, apierrors.NewParseError(0, "", "", ErrEmptyInput)
	}
	return g, nil
}

func (g *grid) append(record []string, line int) {
	g.rows = append(g.rows, record)
	g.lines = append(g.lines, line)
	if len(record) > g.width {
		g.width = len(record)
	}
}

func (g *grid) trimTrailingBlank() {
	for len(g.rows) > 0 && g.blankRow(len(g.rows)-1) {
		g.rows = g.rows[:len(g.rows)-1]
		g.lines = g.lines[:len(g.lines)-1]
	}
	g.width = 0
	for _, r := range g.rows {
		if len(r) > g.width {
			g.width = len(r)
		}
	}
}

// DetectDelimiter guesses the field separator of a delimited export from its
// first non-blank line. Tabs win; otherwise semicolons beat commas, since
// exports with decimal commas separate fields with semicolons.
func DetectDelimiter(text string) rune {
	text = strings.TrimPrefix(text, utf8BOM)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.ContainsRune(line, '\t'):
			return '\t'
		case strings.Count(line, ";") >= strings.Count(line, ",") && strings.Contains(line, ";"):
			return ';'
		case strings.Contains(line, ","):
			return ','
		}
		break
	}
	return '\t'
}
