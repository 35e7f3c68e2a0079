package registry

import (
	"strings"

	"metrolog/pkg/contracts/domain"
)

type keywordRule struct {
	keywords []string
	kind     domain.FunctionalType
}

// Rules in priority order; the first rule with a matching keyword wins.
var classificationRules = []keywordRule{
	{[]string{"diam", "ø", "perçage", "percage"}, domain.TypeOuterDiameter},
	{[]string{"rayon"}, domain.TypeRadius},
	{[]string{"épais", "epais", "patin"}, domain.TypeThickness},
	{[]string{"largeur", "hauteur", "gorge", "longueur"}, domain.TypeLength},
	{[]string{"angle"}, domain.TypeAngle},
	{[]string{"alésage", "alesage"}, domain.TypeBore},
}

// Classify guesses the functional type of a dimension from its name. The
// match is a case-insensitive substring test; names matching no keyword are
// TypeOther.
func Classify(name string) domain.FunctionalType {
	lower := strings.ToLower(name)
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.kind
			}
		}
	}
	return domain.TypeOther
}
