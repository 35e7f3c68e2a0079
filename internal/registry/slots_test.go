package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlot(t *testing.T) {
	label, k, err := ParseSlot(" ang3 ")
	require.NoError(t, err)
	assert.Equal(t, "ANG3", label)
	assert.Equal(t, 3, k)

	for _, bad := range []string{"", "ANG", "ANG0", "ANGx", "SLOT1", "ANG-1"} {
		_, _, err := ParseSlot(bad)
		assert.Error(t, err, bad)
	}
}

func TestSlotAngle(t *testing.T) {
	tests := []struct {
		slot  string
		count int
		want  float64
	}{
		{"ANG1", 12, 0},
		{"ANG2", 12, 30},
		{"ANG12", 12, 330},
		{"ANG13", 12, 0},
		{"ANG2", 3, 120},
		{"ANG4", 0, 90},
	}

	for _, tt := range tests {
		got, err := SlotAngle(tt.slot, tt.count)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.slot)
	}

	_, err := SlotAngle("nope", 12)
	assert.Error(t, err)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "Rayon extérieur", BaseName("Rayon extérieur ANG1"))
	assert.Equal(t, "Rayon", BaseName("Rayon_ANG12"))
	assert.Equal(t, "Rayon", BaseName("Rayon-ang2"))
	assert.Equal(t, "RayonFond", BaseName("RayonFondANG3"))
	assert.Equal(t, "Diam ext", BaseName("Diam ext"))
}

func TestAvailableSlots(t *testing.T) {
	names := []string{
		"Rayon extérieur ANG3",
		"Rayon extérieur ANG1",
		"Rayon extérieur ANG10",
		"rayon extérieur_ANG1",
		"Rayon intérieur ANG2",
		"Diam ext",
	}

	assert.Equal(t, []string{"ANG1", "ANG3", "ANG10"}, AvailableSlots("Rayon extérieur ANG1", names))
	assert.Equal(t, []string{"ANG1", "ANG3", "ANG10"}, AvailableSlots("Rayon extérieur", names))
	assert.Equal(t, []string{"ANG2"}, AvailableSlots("Rayon intérieur ANG2", names))
	assert.Empty(t, AvailableSlots("Diam ext", names))
}
