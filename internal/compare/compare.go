package compare

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"metrolog/pkg/contracts/domain"
)

// Defaults used when Options leave a field empty.
const (
	DefaultPrefix    = "Cire_"
	DefaultLabelA    = "Métal"
	DefaultLabelB    = "Cire"
	DefaultThreshold = 0.05
)

// Options configure an alignment.
type Options struct {
	// Prefix is stripped from dimension names of batch B.
	Prefix string
	LabelA string
	LabelB string
	// Threshold is the mean difference, in mm, above which a dimension is
	// flagged. Zero selects DefaultThreshold.
	Threshold float64
}

// WithDefaults fills empty fields.
func (o Options) WithDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.LabelA == "" {
		o.LabelA = DefaultLabelA
	}
	if o.LabelB == "" {
		o.LabelB = DefaultLabelB
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// Normalize trims name and removes prefix when present.
func Normalize(name, prefix string) string {
	name = strings.TrimSpace(name)
	if prefix != "" {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.TrimSpace(name)
}

// Align builds the unified table of both batches and compares the means of
// every dimension present in both. Rows keep input order, batch A first.
func Align(a, b []domain.Measurement, opts Options) domain.ComparisonResult {
	opts = opts.WithDefaults()

	result := domain.ComparisonResult{
		LabelA:    opts.LabelA,
		LabelB:    opts.LabelB,
		Prefix:    opts.Prefix,
		Threshold: opts.Threshold,
		Rows:      make([]domain.ComparisonRow, 0, len(a)+len(b)),
		Summaries: []domain.ComparisonSummary{},
		OnlyInA:   []string{},
		OnlyInB:   []string{},
	}

	valuesA := make(map[string][]float64)
	valuesB := make(map[string][]float64)
	for _, m := range a {
		row := newRow(m, Normalize(m.DimensionName, ""), opts.LabelA)
		valuesA[row.NormalizedName] = append(valuesA[row.NormalizedName], m.Measured)
		result.Rows = append(result.Rows, row)
	}
	for _, m := range b {
		row := newRow(m, Normalize(m.DimensionName, opts.Prefix), opts.LabelB)
		valuesB[row.NormalizedName] = append(valuesB[row.NormalizedName], m.Measured)
		result.Rows = append(result.Rows, row)
	}

	for name, va := range valuesA {
		vb, ok := valuesB[name]
		if !ok {
			result.OnlyInA = append(result.OnlyInA, name)
			continue
		}
		meanA := stat.Mean(va, nil)
		meanB := stat.Mean(vb, nil)
		delta := math.Abs(meanA - meanB)
		result.Summaries = append(result.Summaries, domain.ComparisonSummary{
			NormalizedName: name,
			MeanA:          meanA,
			MeanB:          meanB,
			CountA:         len(va),
			CountB:         len(vb),
			AbsDelta:       delta,
			Flagged:        delta > opts.Threshold,
		})
	}
	for name := range valuesB {
		if _, ok := valuesA[name]; !ok {
			result.OnlyInB = append(result.OnlyInB, name)
		}
	}

	sort.Slice(result.Summaries, func(i, j int) bool {
		return result.Summaries[i].NormalizedName < result.Summaries[j].NormalizedName
	})
	sort.Strings(result.OnlyInA)
	sort.Strings(result.OnlyInB)
	return result
}

// Flagged returns the summaries whose difference exceeds the threshold.
func Flagged(r domain.ComparisonResult) []domain.ComparisonSummary {
	var out []domain.ComparisonSummary
	for _, s := range r.Summaries {
		if s.Flagged {
			out = append(out, s)
		}
	}
	return out
}

func newRow(m domain.Measurement, normalized, batch string) domain.ComparisonRow {
	row := domain.ComparisonRow{
		Measurement:    m,
		NormalizedName: normalized,
		Batch:          batch,
		Deviation:      m.Deviation(),
		OutOfTolerance: !m.InTolerance(),
	}
	if m.Nominal != 0 {
		pct := row.Deviation / m.Nominal * 100
		row.DeviationPct = &pct
	}
	return row
}
