package measurement

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var errNotFinite = errors.New("value is not a finite number")

// ParseDecimal reads a number written with either a decimal point or a
// decimal comma. Thousands separators are not supported.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// FormatDecimal writes v with a decimal point and the shortest exact digits.
func FormatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
