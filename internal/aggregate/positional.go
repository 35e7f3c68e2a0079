package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"metrolog/pkg/contracts/domain"
)

// Bounds of the placeholder axis used when positions are unknown.
const (
	synthMin = 0.0
	synthMax = 100.0
)

// Positional builds one series per dimension keyed by the position along the
// part axis. A row's own position wins over the profile position. When any
// row of a dimension has neither, the whole dimension is placed on evenly
// spaced placeholder positions over [0, 100] in row order and flagged
// Synthesized; those positions are not measured quantities.
func Positional(rows []domain.Measurement, profiles map[string]domain.DimensionProfile, opts Options) []domain.PositionalSeries {
	byDim := make(map[string][]domain.Measurement)
	var names []string
	for _, m := range opts.scope(rows) {
		if _, ok := byDim[m.DimensionName]; !ok {
			names = append(names, m.DimensionName)
		}
		byDim[m.DimensionName] = append(byDim[m.DimensionName], m)
	}
	sort.Strings(names)

	out := make([]domain.PositionalSeries, 0, len(names))
	for _, name := range names {
		out = append(out, positionalSeries(name, byDim[name], profiles[name]))
	}
	return out
}

type positioned struct {
	pos   float64
	value float64
}

func positionalSeries(name string, rows []domain.Measurement, profile domain.DimensionProfile) domain.PositionalSeries {
	first := rows[0]
	s := domain.PositionalSeries{
		Dimension:    name,
		Nominal:      first.Nominal,
		ToleranceMin: first.ToleranceMin,
		ToleranceMax: first.ToleranceMax,
	}

	points := make([]positioned, len(rows))
	measured := true
	for i, m := range rows {
		points[i].value = m.Measured
		switch {
		case m.Position != nil:
			points[i].pos = *m.Position
		case profile.Position != nil:
			points[i].pos = *profile.Position
		default:
			measured = false
		}
	}

	if measured {
		sort.SliceStable(points, func(i, j int) bool { return points[i].pos < points[j].pos })
	} else {
		s.Synthesized = true
		for i, p := range Linspace(len(points)) {
			points[i].pos = p
		}
	}

	s.Positions = make([]float64, len(points))
	s.Values = make([]float64, len(points))
	s.Deviations = make([]float64, len(points))
	for i, p := range points {
		s.Positions[i] = p.pos
		s.Values[i] = p.value
		s.Deviations[i] = p.value - s.Nominal
	}
	return s
}

// Linspace returns n evenly spaced placeholder positions over [0, 100]. A
// single point sits at 0.
func Linspace(n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{synthMin}
	}
	return floats.Span(make([]float64, n), synthMin, synthMax)
}
