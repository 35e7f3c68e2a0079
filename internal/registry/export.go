package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"metrolog/internal/exporter"
	"metrolog/pkg/contracts/domain"
)

// DocumentEntry is the exported profile of one dimension.
type DocumentEntry struct {
	Type     domain.FunctionalType `json:"Type_Cote" jsonschema:"required,title=Type de cote"`
	GPSTags  []string              `json:"Tolérances_GPS" jsonschema:"required,uniqueItems=true"`
	Group    *int                  `json:"Groupe_Profil" jsonschema:"required,minimum=1"`
	Angular  string                `json:"Position_Angulaire" jsonschema:"required"`
	Degrees  *float64              `json:"Angle_Degres" jsonschema:"required,minimum=0,maximum=360"`
	Position *float64              `json:"Hauteur,omitempty"`
}

// JSONSchemaExtend restricts the enumerated fields to their closed sets.
func (DocumentEntry) JSONSchemaExtend(s *jsonschema.Schema) {
	if prop, ok := s.Properties.Get("Type_Cote"); ok {
		prop.Type = "string"
		prop.Enum = nil
		for _, t := range domain.FunctionalTypes() {
			prop.Enum = append(prop.Enum, string(t))
		}
	}
	if prop, ok := s.Properties.Get("Tolérances_GPS"); ok && prop.Items != nil {
		prop.Items.Enum = nil
		for _, c := range gpsCatalog {
			for _, t := range c.Tags {
				prop.Items.Enum = append(prop.Items.Enum, t)
			}
		}
	}
	if prop, ok := s.Properties.Get("Position_Angulaire"); ok {
		prop.Pattern = `^(ANG[1-9][0-9]*|` + domain.UnspecifiedPosition + `)$`
	}
}

// Document maps dimension names to their exported profiles. It is the
// re-importable form of a registry.
type Document map[string]DocumentEntry

// CSVHeaders are the columns of the flat registry export.
var CSVHeaders = []string{
	"Nom_Cote",
	"Type_Cote",
	"Tolérances_GPS",
	"Groupe_Profil",
	"Position_Angulaire",
	"Angle_Degres",
}

func entryOf(p domain.DimensionProfile) DocumentEntry {
	e := DocumentEntry{
		Type:    p.Type,
		GPSTags: append([]string{}, p.GPSTags...),
		Angular: p.Angular.Label(),
	}
	if p.GroupID != nil {
		id := *p.GroupID
		e.Group = &id
	}
	if p.Angular.Degrees != nil {
		deg := *p.Angular.Degrees
		e.Degrees = &deg
	}
	if p.Position != nil {
		pos := *p.Position
		e.Position = &pos
	}
	return e
}

// Document returns the exportable form of the registry.
func (r *Registry) Document() Document {
	doc := make(Document, len(r.profiles))
	for name, p := range r.profiles {
		doc[name] = entryOf(*p)
	}
	return doc
}

// WriteJSON writes the registry document with sorted keys and two-space
// indentation. Equal registries produce identical bytes.
func (r *Registry) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Document()); err != nil {
		return fmt.Errorf("failed to encode registry document: %w", err)
	}
	return nil
}

// Records returns one flat record per dimension, sorted by name. GPS tags
// are joined with ", ".
func (r *Registry) Records() [][]string {
	records := make([][]string, 0, len(r.profiles))
	for _, p := range r.Snapshot() {
		group := ""
		if p.GroupID != nil {
			group = strconv.Itoa(*p.GroupID)
		}
		degrees := ""
		if p.Angular.Degrees != nil {
			degrees = strconv.FormatFloat(*p.Angular.Degrees, 'f', -1, 64)
		}
		records = append(records, []string{
			p.Name,
			string(p.Type),
			strings.Join(p.GPSTags, ", "),
			group,
			p.Angular.Label(),
			degrees,
		})
	}
	return records
}

// WriteCSV writes the flat registry table as CSV with a UTF-8 BOM.
func (r *Registry) WriteCSV(w io.Writer) error {
	return exporter.Write(w, exporter.WriteOptions{
		Headers:   CSVHeaders,
		Records:   r.Records(),
		BOMPrefix: true,
	})
}
