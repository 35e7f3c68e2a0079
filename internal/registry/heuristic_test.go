package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"metrolog/pkg/contracts/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want domain.FunctionalType
	}{
		{"Diam ext A", domain.TypeOuterDiameter},
		{"Ø 12 H7", domain.TypeOuterDiameter},
		{"Perçage P3", domain.TypeOuterDiameter},
		{"Rayon extérieur ANG1", domain.TypeRadius},
		{"RAYON FOND", domain.TypeRadius},
		{"Épaisseur voile", domain.TypeThickness},
		{"Epaisseur bord", domain.TypeThickness},
		{"Patin 2", domain.TypeThickness},
		{"Largeur gorge", domain.TypeLength},
		{"Hauteur totale", domain.TypeLength},
		{"Longueur L1", domain.TypeLength},
		{"Angle de dépouille", domain.TypeAngle},
		{"Alésage central", domain.TypeBore},
		{"Alesage B", domain.TypeBore},
		{"Planéité face A", domain.TypeOther},
		{"", domain.TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	// diameter markers win over radius, radius over thickness, and so on
	assert.Equal(t, domain.TypeOuterDiameter, Classify("Rayon diam"))
	assert.Equal(t, domain.TypeRadius, Classify("Rayon patin"))
	assert.Equal(t, domain.TypeThickness, Classify("Epaisseur gorge"))
	assert.Equal(t, domain.TypeLength, Classify("Hauteur angle"))
	assert.Equal(t, domain.TypeAngle, Classify("Angle alésage"))
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	assert.Len(t, catalog, 4)
	assert.Equal(t, "Forme", catalog[0].Name)
	assert.Contains(t, catalog[0].Tags, "Circularité")

	// returned slices are copies
	catalog[0].Tags[0] = "mutated"
	assert.Equal(t, "Rectitude", Catalog()[0].Tags[0])

	category, ok := CategoryOf("Coaxialité")
	assert.True(t, ok)
	assert.Equal(t, "Position", category)
}

func TestNormalizeTags(t *testing.T) {
	tags, err := NormalizeTags([]string{" Planéité", "Circularité", "Planéité", ""})
	assert.NoError(t, err)
	assert.Equal(t, []string{"Circularité", "Planéité"}, tags)

	_, err = NormalizeTags([]string{"Rugosité"})
	assert.Error(t, err)

	tags, err = NormalizeTags(nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{}, tags)
}
