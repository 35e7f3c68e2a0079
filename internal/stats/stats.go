package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

// BoundsPolicy decides what happens when the rows of one dimension disagree
// on their tolerance bounds.
type BoundsPolicy string

const (
	// BoundsStrict rejects the computation with a ValidationError.
	BoundsStrict BoundsPolicy = "strict"
	// BoundsFirstRow uses the bounds of the first row and reports the
	// summary with BoundsConsistent set to false.
	BoundsFirstRow BoundsPolicy = "first_row"
)

// ParseBoundsPolicy reads a policy name, defaulting to BoundsStrict.
func ParseBoundsPolicy(s string) (BoundsPolicy, error) {
	switch p := BoundsPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return BoundsStrict, nil
	case BoundsStrict, BoundsFirstRow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown bounds policy %q", s)
	}
}

// Options scope a summary.
type Options struct {
	// Order restricts the rows to one manufacturing order when set.
	Order  *string
	Bounds BoundsPolicy
}

// Summarize returns one summary per dimension, sorted by dimension name.
func Summarize(rows []domain.Measurement, opts Options) ([]domain.StatSummary, error) {
	if opts.Order != nil {
		rows = filterOrder(rows, *opts.Order)
	}

	names, groups := groupBy(rows, func(m domain.Measurement) string { return m.DimensionName })
	sort.Strings(names)

	out := make([]domain.StatSummary, 0, len(names))
	for _, name := range names {
		s, err := summarize(name, groups[name], opts.Bounds)
		if err != nil {
			return nil, err
		}
		if opts.Order != nil {
			of := *opts.Order
			s.OrderID = &of
		}
		out = append(out, s)
	}
	return out, nil
}

// SummarizeByOrder returns one summary per dimension and manufacturing
// order, sorted by dimension then order.
func SummarizeByOrder(rows []domain.Measurement, bounds BoundsPolicy) ([]domain.StatSummary, error) {
	type key struct{ name, order string }

	groups := make(map[key][]domain.Measurement)
	var keys []key
	for _, m := range rows {
		k := key{m.DimensionName, m.OrderID}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], m)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].order < keys[j].order
	})

	out := make([]domain.StatSummary, 0, len(keys))
	for _, k := range keys {
		s, err := summarize(k.name, groups[k], bounds)
		if err != nil {
			return nil, err
		}
		of := k.order
		s.OrderID = &of
		out = append(out, s)
	}
	return out, nil
}

// summarize computes the statistics of the rows of one dimension. rows is
// never empty.
func summarize(name string, rows []domain.Measurement, bounds BoundsPolicy) (domain.StatSummary, error) {
	first := rows[0]
	s := domain.StatSummary{
		Dimension:        name,
		N:                len(rows),
		Nominal:          first.Nominal,
		ToleranceMin:     first.ToleranceMin,
		ToleranceMax:     first.ToleranceMax,
		BoundsConsistent: true,
	}

	values := make([]float64, len(rows))
	absDev := make([]float64, len(rows))
	out := 0
	for i, m := range rows {
		values[i] = m.Measured
		absDev[i] = math.Abs(m.Measured - m.Nominal)
		// each row is judged against its own bounds, inclusive
		if !m.InTolerance() {
			out++
		}
		if m.ToleranceMin != first.ToleranceMin || m.ToleranceMax != first.ToleranceMax {
			s.BoundsConsistent = false
		}
	}

	if !s.BoundsConsistent && bounds != BoundsFirstRow {
		return domain.StatSummary{}, apierrors.NewValidationError("tolerance",
			fmt.Sprintf("dimension %q has rows with different tolerance bounds", name), name)
	}

	s.Mean = stat.Mean(values, nil)
	s.MeanAbsDeviation = stat.Mean(absDev, nil)
	s.PctOutOfTolerance = 100 * float64(out) / float64(len(rows))

	if len(values) < 2 {
		return s, nil
	}

	std := 0.0
	// identical readings have zero spread even when the mean is not exact
	if floats.Max(values) != floats.Min(values) {
		std = stat.StdDev(values, nil)
	}
	s.StdDev = &std

	if std > 0 {
		cp := (s.ToleranceMax - s.ToleranceMin) / (6 * std)
		cpk := math.Min(s.ToleranceMax-s.Mean, s.Mean-s.ToleranceMin) / (3 * std)
		s.Cp = &cp
		s.Cpk = &cpk
	}
	return s, nil
}

func filterOrder(rows []domain.Measurement, order string) []domain.Measurement {
	var out []domain.Measurement
	for _, m := range rows {
		if m.OrderID == order {
			out = append(out, m)
		}
	}
	return out
}

// groupBy buckets rows by key, returning keys in order of first appearance.
func groupBy(rows []domain.Measurement, key func(domain.Measurement) string) ([]string, map[string][]domain.Measurement) {
	groups := make(map[string][]domain.Measurement)
	var keys []string
	for _, m := range rows {
		k := key(m)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], m)
	}
	return keys, groups
}
