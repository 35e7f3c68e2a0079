package domain

import (
	"fmt"
	"strings"
)

// FunctionalType classifies what a dimension measures. The values are the
// operator-facing labels used in exports and the registry document.
type FunctionalType string

const (
	TypeOuterDiameter FunctionalType = "Diamètre extérieur"
	TypeBore          FunctionalType = "Alésage"
	TypeThickness     FunctionalType = "Épaisseur"
	TypeRadius        FunctionalType = "Rayon"
	TypeLength        FunctionalType = "Longueur"
	TypeAngle         FunctionalType = "Angle"
	TypeOther         FunctionalType = "Autre"
)

var functionalTypes = []FunctionalType{
	TypeOuterDiameter,
	TypeBore,
	TypeThickness,
	TypeRadius,
	TypeLength,
	TypeAngle,
	TypeOther,
}

// English identifiers accepted by the API in addition to the labels.
var functionalTypeAliases = map[string]FunctionalType{
	"outer_diameter": TypeOuterDiameter,
	"bore":           TypeBore,
	"thickness":      TypeThickness,
	"radius":         TypeRadius,
	"length":         TypeLength,
	"angle":          TypeAngle,
	"other":          TypeOther,
}

// FunctionalTypes returns the closed set of functional types in display order.
func FunctionalTypes() []FunctionalType {
	out := make([]FunctionalType, len(functionalTypes))
	copy(out, functionalTypes)
	return out
}

// Valid reports whether t belongs to the closed enumeration.
func (t FunctionalType) Valid() bool {
	for _, ft := range functionalTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// ParseFunctionalType accepts either a label or its English identifier.
func ParseFunctionalType(s string) (FunctionalType, error) {
	s = strings.TrimSpace(s)
	if t := FunctionalType(s); t.Valid() {
		return t, nil
	}
	if t, ok := functionalTypeAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown functional type %q", s)
}

// UnspecifiedPosition is the label of a dimension without angular position.
const UnspecifiedPosition = "Non spécifié"

// AngularPosition holds either a slot label ("ANG1"...) or a free angle in
// degrees. At most one of the two is populated.
type AngularPosition struct {
	Slot    string   `json:"slot,omitempty"`
	Degrees *float64 `json:"degrees,omitempty"`
}

// IsSet reports whether a slot or an angle is populated.
func (a AngularPosition) IsSet() bool {
	return a.Slot != "" || a.Degrees != nil
}

// Label returns the slot label or UnspecifiedPosition.
func (a AngularPosition) Label() string {
	if a.Slot != "" {
		return a.Slot
	}
	return UnspecifiedPosition
}

// Overrides records which profile fields were set explicitly by the operator.
// Overridden fields survive re-parsing and merge imports.
type Overrides struct {
	Type     bool `json:"type,omitempty"`
	GPSTags  bool `json:"gps_tags,omitempty"`
	Angular  bool `json:"angular,omitempty"`
	Position bool `json:"position,omitempty"`
}

// DimensionProfile is the registry entry of one dimension name.
type DimensionProfile struct {
	Name      string          `json:"name"`
	Type      FunctionalType  `json:"functional_type"`
	GPSTags   []string        `json:"gps_tags"`
	GroupID   *int            `json:"profile_group_id"`
	Angular   AngularPosition `json:"angular_position"`
	Position  *float64        `json:"position,omitempty"`
	Overrides Overrides       `json:"overrides"`
}

// Clone returns a deep copy of the profile.
func (p DimensionProfile) Clone() DimensionProfile {
	out := p
	out.GPSTags = append([]string(nil), p.GPSTags...)
	if out.GPSTags == nil {
		out.GPSTags = []string{}
	}
	if p.GroupID != nil {
		id := *p.GroupID
		out.GroupID = &id
	}
	if p.Angular.Degrees != nil {
		deg := *p.Angular.Degrees
		out.Angular.Degrees = &deg
	}
	if p.Position != nil {
		pos := *p.Position
		out.Position = &pos
	}
	return out
}

// ProfileGroup links dimensions sampled around a common geometric profile.
type ProfileGroup struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// GPSCategory is one of the ISO GPS tolerance families.
type GPSCategory struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}
