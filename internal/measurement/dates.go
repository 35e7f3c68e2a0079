package measurement

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Day-first layouts, most specific first.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"2/1/06",
}

// Excel serials accepted as dates: 1900-01-01 up to 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate normalises a measurement date to YYYY-MM-DD. Ambiguous dates are
// read day first. Spreadsheet serial numbers are accepted. It returns nil when
// the value is empty or cannot be read as a date.
func ParseDate(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatDate(t)
		}
	}

	if serial, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		if serial >= minExcelSerial && serial <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return formatDate(t)
			}
		}
	}

	return nil
}

func formatDate(t time.Time) *string {
	out := t.Format(time.DateOnly)
	return &out
}
