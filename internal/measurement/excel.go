package measurement

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apierrors "metrolog/internal/errors"
)

// ParseWorkbook reads the first sheet of an .xlsx workbook and parses it like
// pasted text. Cell values are read unformatted, so dates arrive as
// spreadsheet serial numbers and decimals keep their full precision.
func ParseWorkbook(ctx context.Context, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierrors.NewParseError(0, "", "", fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apierrors.NewParseError(0, "", "", ErrEmptyInput)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apierrors.NewParseError(0, "", "", fmt.Errorf("failed to read sheet %q: %w", sheets[0], err))
	}

	g, err := gridFromRows(rows)
	if err != nil {
		return nil, err
	}
	return parseGrid(ctx, g)
}
