// Package api contains the HTTP request contracts of the Metrolog API.
// Version v1 represents the current stable API version.
package api

// Session API Requests

// IngestRequest carries pasted spreadsheet text
type IngestRequest struct {
	Text string `json:"text" validate:"required"`
}

// MeasurementsQuery selects an order and an output format
type MeasurementsQuery struct {
	OF     *string `json:"of,omitempty" query:"of"`
	Format string  `json:"format" query:"format" validate:"omitempty,oneof=json tsv csv arrow"`
}

// StatsQuery selects the scope and tolerance policy of a statistics request
type StatsQuery struct {
	OF      *string `json:"of,omitempty" query:"of"`
	ByOrder bool    `json:"by_order" query:"by_order"`
	Bounds  string  `json:"bounds,omitempty" query:"bounds" validate:"omitempty,oneof=strict first_row"`
}

// Registry API Requests

// ProfileUpdateRequest edits the operator-owned fields of one dimension.
// Nil fields are left untouched.
type ProfileUpdateRequest struct {
	// Type accepts a label ("Rayon") or an identifier ("radius").
	Type     *string   `json:"functional_type,omitempty" validate:"omitempty,min=1,max=32"`
	GPSTags  *[]string `json:"gps_tags,omitempty" validate:"omitempty,max=32,dive,max=64"`
	Position *float64  `json:"position,omitempty"`
	// ClearPosition removes a stored position.
	ClearPosition bool `json:"clear_position,omitempty"`
}

// AngularRequest sets exactly one of slot or degrees, or clears the position
type AngularRequest struct {
	Slot    string   `json:"slot,omitempty" validate:"omitempty,slot"`
	Degrees *float64 `json:"degrees,omitempty" validate:"omitempty,min=0,max=360"`
	Clear   bool     `json:"clear,omitempty"`
}

// ImportQuery selects how an imported registry document is applied
type ImportQuery struct {
	Mode string `json:"mode" query:"mode" validate:"omitempty,oneof=merge replace"`
}

// SnapshotRequest labels a registry snapshot
type SnapshotRequest struct {
	Label string `json:"label,omitempty" validate:"omitempty,max=48"`
}

// RestoreRequest selects how a snapshot is applied
type RestoreRequest struct {
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=merge replace"`
}

// Group API Requests

// LinkRequest groups two or more dimensions
type LinkRequest struct {
	Members []string `json:"members" validate:"required,min=2,unique,dive,required"`
}

// RadarQuery selects the angle and order of a group radar
type RadarQuery struct {
	Angle float64 `json:"angle" query:"angle" validate:"min=0,max=360"`
	OF    *string `json:"of,omitempty" query:"of"`
}

// Comparison API Requests

// CompareRequest aligns two pasted batches. Empty options fall back to the
// configured defaults.
type CompareRequest struct {
	BatchA    string   `json:"batch_a" validate:"required"`
	BatchB    string   `json:"batch_b" validate:"required"`
	Prefix    string   `json:"prefix,omitempty" validate:"omitempty,max=32"`
	LabelA    string   `json:"label_a,omitempty" validate:"omitempty,max=32"`
	LabelB    string   `json:"label_b,omitempty" validate:"omitempty,max=32"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gt=0"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
