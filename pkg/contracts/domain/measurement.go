package domain

// Canonical column names of the structured measurement export. The order is the
// order used when a table is serialised back to delimited text.
const (
	ColumnDate         = "Date"
	ColumnSerial       = "Serial"
	ColumnOrder        = "OF"
	ColumnDimension    = "Nom_Cote"
	ColumnMeasured     = "Mesure"
	ColumnNominal      = "Nominal"
	ColumnToleranceMin = "Tolérance_Min"
	ColumnToleranceMax = "Tolérance_Max"

	// ColumnPosition is the optional linear position column (mm along the part axis).
	ColumnPosition = "Hauteur"
)

// CanonicalColumns returns the canonical column set in serialisation order.
func CanonicalColumns() []string {
	return []string{
		ColumnDate,
		ColumnSerial,
		ColumnOrder,
		ColumnDimension,
		ColumnMeasured,
		ColumnNominal,
		ColumnToleranceMin,
		ColumnToleranceMax,
	}
}

// Measurement is one row of the canonical long-format measurement table.
//
// Measured, Nominal and the tolerance bounds are always decimal-point floats;
// decimal-comma input is normalised by the parser before a Measurement exists.
type Measurement struct {
	// Date is formatted YYYY-MM-DD, nil when the source value could not be parsed.
	Date          *string  `json:"date" csv:"Date"`
	Serial        string   `json:"serial" csv:"Serial"`
	OrderID       string   `json:"order_id" csv:"OF"`
	DimensionName string   `json:"dimension_name" csv:"Nom_Cote"`
	Measured      float64  `json:"measured_value" csv:"Mesure"`
	Nominal       float64  `json:"nominal_value" csv:"Nominal"`
	ToleranceMin  float64  `json:"tolerance_min" csv:"Tolérance_Min"`
	ToleranceMax  float64  `json:"tolerance_max" csv:"Tolérance_Max"`
	Position      *float64 `json:"position,omitempty" csv:"Hauteur"`
}

// Deviation returns measured minus nominal.
func (m Measurement) Deviation() float64 {
	return m.Measured - m.Nominal
}

// InTolerance reports whether the measured value lies in [ToleranceMin, ToleranceMax].
func (m Measurement) InTolerance() bool {
	return m.Measured >= m.ToleranceMin && m.Measured <= m.ToleranceMax
}

// Layout identifies which input layout a table was parsed from.
type Layout string

const (
	LayoutStructured Layout = "structured"
	LayoutRaw        Layout = "raw"
)
