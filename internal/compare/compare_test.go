package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolog/pkg/contracts/domain"
)

func row(name string, v, nominal float64) domain.Measurement {
	return domain.Measurement{
		Serial: "S1", OrderID: "OF1", DimensionName: name,
		Measured: v, Nominal: nominal, ToleranceMin: nominal - 0.1, ToleranceMax: nominal + 0.1,
	}
}

func TestAlign_WaxAgainstMetal(t *testing.T) {
	metal := []domain.Measurement{row("R1", 10.02, 10)}
	wax := []domain.Measurement{row("Cire_R1", 10.10, 10)}

	result := Align(metal, wax, Options{})

	require.Len(t, result.Summaries, 1)
	s := result.Summaries[0]
	assert.Equal(t, "R1", s.NormalizedName)
	assert.InDelta(t, 0.08, s.AbsDelta, 1e-9)
	assert.True(t, s.Flagged)
	assert.Equal(t, 1, s.CountA)
	assert.Equal(t, 1, s.CountB)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Métal", result.Rows[0].Batch)
	assert.Equal(t, "Cire", result.Rows[1].Batch)
	assert.Equal(t, "R1", result.Rows[1].NormalizedName)
	assert.Equal(t, "Cire_R1", result.Rows[1].DimensionName)
	assert.Equal(t, DefaultThreshold, result.Threshold)
	assert.Len(t, Flagged(result), 1)
}

func TestAlign_BelowThreshold(t *testing.T) {
	a := []domain.Measurement{row("R1", 10.00, 10), row("R1", 10.04, 10)}
	b := []domain.Measurement{row("Cire_R1", 10.03, 10)}

	result := Align(a, b, Options{})

	require.Len(t, result.Summaries, 1)
	assert.InDelta(t, 10.02, result.Summaries[0].MeanA, 1e-9)
	assert.InDelta(t, 0.01, result.Summaries[0].AbsDelta, 1e-9)
	assert.False(t, result.Summaries[0].Flagged)
	assert.Empty(t, Flagged(result))
}

func TestAlign_OneSidedNames(t *testing.T) {
	a := []domain.Measurement{row("R1", 10, 10), row("D2", 40, 40)}
	b := []domain.Measurement{row("Cire_R1", 10, 10), row("Cire_E3", 3, 3), row("Z9", 1, 1)}

	result := Align(a, b, Options{})

	assert.Equal(t, []string{"D2"}, result.OnlyInA)
	assert.Equal(t, []string{"E3", "Z9"}, result.OnlyInB)
	require.Len(t, result.Summaries, 1)
	assert.False(t, result.Summaries[0].Flagged)
}

func TestAlign_CustomOptions(t *testing.T) {
	a := []domain.Measurement{row("R1", 10.02, 10)}
	b := []domain.Measurement{row("WAX-R1", 10.10, 10)}

	result := Align(a, b, Options{Prefix: "WAX-", LabelA: "metal", LabelB: "wax", Threshold: 0.1})

	require.Len(t, result.Summaries, 1)
	assert.False(t, result.Summaries[0].Flagged)
	assert.Equal(t, "wax", result.Rows[1].Batch)
}

func TestAlign_DeviationPercent(t *testing.T) {
	a := []domain.Measurement{row("R1", 10.2, 10), row("A0", 0.05, 0)}

	result := Align(a, nil, Options{})

	require.Len(t, result.Rows, 2)
	r := result.Rows[0]
	assert.InDelta(t, 0.2, r.Deviation, 1e-9)
	require.NotNil(t, r.DeviationPct)
	assert.InDelta(t, 2.0, *r.DeviationPct, 1e-9)
	assert.True(t, r.OutOfTolerance)

	assert.Nil(t, result.Rows[1].DeviationPct)
	assert.False(t, result.Rows[1].OutOfTolerance)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "R1", Normalize("  Cire_R1 ", "Cire_"))
	assert.Equal(t, "R1", Normalize("R1", "Cire_"))
	assert.Equal(t, "Cire_R1", Normalize("Cire_R1", ""))
	assert.Equal(t, "1,5", Normalize("Cire_1,5", "Cire_"))
}

func TestAlign_Empty(t *testing.T) {
	result := Align(nil, nil, Options{})
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Summaries)
	assert.NotNil(t, result.OnlyInA)
}
