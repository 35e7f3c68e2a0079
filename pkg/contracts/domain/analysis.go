package domain

// StatSummary holds the statistics of one dimension, optionally scoped to one
// manufacturing order. StdDev, Cp and Cpk are nil when undefined (n < 2 or a
// zero spread); they are never NaN.
type StatSummary struct {
	Dimension         string   `json:"dimension_name" csv:"Nom_Cote"`
	OrderID           *string  `json:"order_id,omitempty" csv:"OF"`
	N                 int      `json:"n" csv:"N Mesures"`
	Mean              float64  `json:"mean" csv:"Moyenne"`
	StdDev            *float64 `json:"std_dev" csv:"Écart-type"`
	MeanAbsDeviation  float64  `json:"mean_abs_deviation" csv:"Écart moyen absolu"`
	Cp                *float64 `json:"cp" csv:"Cp"`
	Cpk               *float64 `json:"cpk" csv:"Cpk"`
	PctOutOfTolerance float64  `json:"pct_out_of_tolerance" csv:"% hors tolérance"`
	Nominal           float64  `json:"nominal_value"`
	ToleranceMin      float64  `json:"tolerance_min"`
	ToleranceMax      float64  `json:"tolerance_max"`
	// BoundsConsistent is false when rows of the group disagree on their bounds.
	BoundsConsistent bool `json:"bounds_consistent"`
}

// AngularSeries is the angle-indexed view of one dimension. Angles is shared by
// every series of the same aggregation; Values[i] is nil when no reading exists
// at Angles[i].
type AngularSeries struct {
	Dimension    string     `json:"dimension_name"`
	GroupID      *int       `json:"profile_group_id"`
	Angles       []float64  `json:"angles"`
	Values       []*float64 `json:"values"`
	Nominal      float64    `json:"nominal_value"`
	ToleranceMin float64    `json:"tolerance_min"`
	ToleranceMax float64    `json:"tolerance_max"`
}

// ValueAt returns the reading at angle, if any.
func (s AngularSeries) ValueAt(angle float64) (float64, bool) {
	for i, a := range s.Angles {
		if a == angle && s.Values[i] != nil {
			return *s.Values[i], true
		}
	}
	return 0, false
}

// DuplicateReading records a reading that was overwritten because another row
// shared its dimension, angle and order.
type DuplicateReading struct {
	Dimension string  `json:"dimension_name"`
	Angle     float64 `json:"angle"`
	OrderID   string  `json:"order_id"`
	Kept      float64 `json:"kept_value"`
	Dropped   float64 `json:"dropped_value"`
}

// AngularAggregate is the output of an angular aggregation.
type AngularAggregate struct {
	Angles     []float64          `json:"angles"`
	Series     []AngularSeries    `json:"series"`
	Duplicates []DuplicateReading `json:"duplicates"`
}

// PositionalSeries is the position-indexed view of one dimension.
type PositionalSeries struct {
	Dimension    string    `json:"dimension_name"`
	Positions    []float64 `json:"positions"`
	Values       []float64 `json:"values"`
	Deviations   []float64 `json:"deviations"`
	Nominal      float64   `json:"nominal_value"`
	ToleranceMin float64   `json:"tolerance_min"`
	ToleranceMax float64   `json:"tolerance_max"`
	// Synthesized is true when positions are evenly spaced placeholders on
	// [0, 100] rather than measured quantities.
	Synthesized bool `json:"synthesized"`
}

// RadarPoint is one group member at the selected angle.
type RadarPoint struct {
	Dimension    string  `json:"dimension_name"`
	Angle        float64 `json:"angle"`
	Value        float64 `json:"value"`
	Nominal      float64 `json:"nominal_value"`
	ToleranceMin float64 `json:"tolerance_min"`
	ToleranceMax float64 `json:"tolerance_max"`
}

// RadarResult is the group radar at one angle. Excluded groups carry a reason
// and are not rendered.
type RadarResult struct {
	GroupID  int          `json:"group_id"`
	Angle    float64      `json:"angle"`
	Points   []RadarPoint `json:"points"`
	Excluded bool         `json:"excluded"`
	Reason   string       `json:"reason,omitempty"`
}

// DeviationPoint is the deviation from nominal of one dimension at one angle.
type DeviationPoint struct {
	Dimension      string  `json:"dimension_name"`
	Measured       float64 `json:"measured_value"`
	Deviation      float64 `json:"deviation"`
	OutOfTolerance bool    `json:"out_of_tolerance"`
}

// ComparisonRow is one measurement of the unified comparison table.
type ComparisonRow struct {
	Measurement
	NormalizedName string   `json:"normalized_name"`
	Batch          string   `json:"batch"`
	Deviation      float64  `json:"deviation"`
	DeviationPct   *float64 `json:"deviation_pct"`
	OutOfTolerance bool     `json:"out_of_tolerance"`
}

// ComparisonSummary compares the means of one dimension across both batches.
type ComparisonSummary struct {
	NormalizedName string  `json:"normalized_name"`
	MeanA          float64 `json:"mean_a"`
	MeanB          float64 `json:"mean_b"`
	CountA         int     `json:"count_a"`
	CountB         int     `json:"count_b"`
	AbsDelta       float64 `json:"abs_delta"`
	Flagged        bool    `json:"flagged"`
}

// ComparisonResult is the aligned view of two measurement batches.
type ComparisonResult struct {
	LabelA    string              `json:"label_a"`
	LabelB    string              `json:"label_b"`
	Prefix    string              `json:"prefix"`
	Threshold float64             `json:"threshold"`
	Rows      []ComparisonRow     `json:"rows"`
	Summaries []ComparisonSummary `json:"summaries"`
	OnlyInA   []string            `json:"only_in_a"`
	OnlyInB   []string            `json:"only_in_b"`
}
