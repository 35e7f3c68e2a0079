package registry

import (
	"fmt"
	"sort"
	"strings"

	"metrolog/pkg/contracts/domain"
)

// GPS tolerance families, ISO 1101.
var gpsCatalog = []domain.GPSCategory{
	{Name: "Forme", Tags: []string{"Rectitude", "Planéité", "Circularité", "Cylindricité", "Forme d'une ligne", "Forme d'une surface"}},
	{Name: "Orientation", Tags: []string{"Parallélisme", "Perpendicularité", "Inclinaison"}},
	{Name: "Position", Tags: []string{"Localisation", "Concentricité", "Coaxialité", "Symétrie"}},
	{Name: "Autre", Tags: []string{"Battement circulaire", "Battement total"}},
}

var gpsTags = func() map[string]string {
	tags := make(map[string]string)
	for _, c := range gpsCatalog {
		for _, t := range c.Tags {
			tags[t] = c.Name
		}
	}
	return tags
}()

// Catalog returns the GPS tolerance categories in display order.
func Catalog() []domain.GPSCategory {
	out := make([]domain.GPSCategory, len(gpsCatalog))
	for i, c := range gpsCatalog {
		out[i] = domain.GPSCategory{Name: c.Name, Tags: append([]string(nil), c.Tags...)}
	}
	return out
}

// CategoryOf returns the category of a catalog tag.
func CategoryOf(tag string) (string, bool) {
	c, ok := gpsTags[tag]
	return c, ok
}

// NormalizeTags trims, deduplicates and sorts tags, rejecting any tag
// outside the catalog.
func NormalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := gpsTags[t]; !ok {
			return nil, fmt.Errorf("%q is not a GPS tolerance of the catalog", t)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
