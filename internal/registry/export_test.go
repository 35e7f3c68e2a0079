package registry

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "metrolog/internal/errors"
	"metrolog/pkg/contracts/domain"
)

func classifiedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	r.EnsureAll([]string{"Rayon ANG1", "Rayon ANG2", "Rayon ANG3", "Diam ext"})

	_, err := r.Update("Diam ext", ProfileUpdate{GPSTags: &[]string{"Circularité", "Cylindricité"}, Position: ptr(40.0)})
	require.NoError(t, err)
	_, err = r.SetAngularPosition("Rayon ANG1", AngularInput{Slot: "ANG1"})
	require.NoError(t, err)
	_, err = r.SetAngularPosition("Rayon ANG2", AngularInput{Degrees: ptr(120.0)})
	require.NoError(t, err)
	_, err = r.Link([]string{"Rayon ANG1", "Rayon ANG2", "Rayon ANG3"})
	require.NoError(t, err)
	return r
}

func TestWriteJSON(t *testing.T) {
	r := classifiedRegistry(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	var doc map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc, 4)

	diam := doc["Diam ext"]
	assert.Equal(t, "Diamètre extérieur", diam["Type_Cote"])
	assert.Equal(t, []interface{}{"Circularité", "Cylindricité"}, diam["Tolérances_GPS"])
	assert.Nil(t, diam["Groupe_Profil"])
	assert.Equal(t, "Non spécifié", diam["Position_Angulaire"])
	assert.Equal(t, 40.0, diam["Hauteur"])

	r1 := doc["Rayon ANG1"]
	assert.Equal(t, float64(1), r1["Groupe_Profil"])
	assert.Equal(t, "ANG1", r1["Position_Angulaire"])
	assert.Nil(t, r1["Angle_Degres"])

	r2 := doc["Rayon ANG2"]
	assert.Equal(t, 120.0, r2["Angle_Degres"])
	assert.NotContains(t, r2, "Hauteur")

	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"Diam ext\": {\n    \"Type_Cote\""))
}

func TestWriteJSON_ByteStable(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, classifiedRegistry(t).WriteJSON(&a))
	require.NoError(t, classifiedRegistry(t).WriteJSON(&b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWriteCSV(t *testing.T) {
	r := classifiedRegistry(t)

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, CSVHeaders, records[0])
	assert.Equal(t, []string{"Diam ext", "Diamètre extérieur", "Circularité, Cylindricité", "", "Non spécifié", ""}, records[1])
	assert.Equal(t, []string{"Rayon ANG1", "Rayon", "", "1", "ANG1", ""}, records[2])
	assert.Equal(t, []string{"Rayon ANG2", "Rayon", "", "1", "Non spécifié", "120"}, records[3])
}

func TestImportJSON_ReplaceRoundTrip(t *testing.T) {
	source := classifiedRegistry(t)
	var buf bytes.Buffer
	require.NoError(t, source.WriteJSON(&buf))

	target := New()
	target.EnsureAll([]string{"Other"})

	result, err := target.ImportJSON(bytes.NewReader(buf.Bytes()), ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, ImportReplace, result.Mode)
	assert.Len(t, result.Created, 4)
	assert.Equal(t, 1, result.Groups)

	assert.False(t, target.Has("Other"))
	assert.Equal(t, source.Groups(), target.Groups())

	var again bytes.Buffer
	require.NoError(t, target.WriteJSON(&again))
	assert.Equal(t, buf.String(), again.String())

	p, _ := target.Get("Diam ext")
	assert.True(t, p.Overrides.GPSTags)
	assert.True(t, p.Overrides.Position)
	assert.False(t, p.Overrides.Type)
}

func TestImportJSON_MergeKeepsOperatorEdits(t *testing.T) {
	r := New()
	r.EnsureAll([]string{"R1", "R2"})
	_, err := r.Update("R1", ProfileUpdate{Type: ptr(domain.TypeRadius)})
	require.NoError(t, err)

	doc := `{
		"R1": {"Type_Cote": "Alésage", "Tolérances_GPS": ["Circularité"], "Groupe_Profil": null, "Position_Angulaire": "ANG4", "Angle_Degres": null},
		"R2": {"Type_Cote": "Épaisseur", "Tolérances_GPS": "Planéité, Parallélisme", "Groupe_Profil": "", "Position_Angulaire": "Non spécifié", "Angle_Degres": "45,5"},
		"R9": {"Type_Cote": "angle", "Tolérances_GPS": [], "Groupe_Profil": 3, "Position_Angulaire": "", "Angle_Degres": null}
	}`

	result, err := r.ImportJSON(strings.NewReader(doc), ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, []string{"R9"}, result.Created)
	assert.Equal(t, []string{"R1", "R2"}, result.Updated)

	r1, _ := r.Get("R1")
	assert.Equal(t, domain.TypeRadius, r1.Type, "operator type survives")
	assert.Equal(t, []string{"Circularité"}, r1.GPSTags)
	assert.Equal(t, "ANG4", r1.Angular.Slot)

	r2, _ := r.Get("R2")
	assert.Equal(t, domain.TypeThickness, r2.Type)
	assert.Equal(t, []string{"Parallélisme", "Planéité"}, r2.GPSTags)
	assert.Equal(t, 45.5, *r2.Angular.Degrees)

	r9, _ := r.Get("R9")
	assert.Equal(t, domain.TypeAngle, r9.Type)
	assert.Nil(t, r9.GroupID, "a single-member group is not created")
}

func TestImportJSON_MergeAppendsGroups(t *testing.T) {
	r := New()
	_, err := r.Link([]string{"R1", "R2"})
	require.NoError(t, err)

	doc := `{
		"R2": {"Groupe_Profil": 1},
		"R3": {"Groupe_Profil": 1},
		"R4": {"Groupe_Profil": 1},
		"R5": {"Groupe_Profil": 7}
	}`
	result, err := r.ImportJSON(strings.NewReader(doc), ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Groups)

	groups := r.Groups()
	assert.Equal(t, []string{"R1", "R2"}, groups[0].Members)
	assert.Equal(t, []string{"R3", "R4"}, groups[1].Members)
}

func TestImportJSON_ReplaceKeepsGroupIDs(t *testing.T) {
	doc := `{
		"A": {"Groupe_Profil": 4},
		"B": {"Groupe_Profil": 4},
		"C": {"Groupe_Profil": 2},
		"D": {"Groupe_Profil": 2},
		"E": {"Groupe_Profil": 9}
	}`
	r := New()
	_, err := r.ImportJSON(strings.NewReader(doc), ImportReplace)
	require.NoError(t, err)

	assert.Equal(t, []domain.ProfileGroup{
		{ID: 2, Members: []string{"C", "D"}},
		{ID: 4, Members: []string{"A", "B"}},
	}, r.Groups())

	e, _ := r.Get("E")
	assert.Nil(t, e.GroupID)
}

func TestImportJSON_InvalidLeavesRegistryUnchanged(t *testing.T) {
	docs := map[string]string{
		"not json":      `{"R1": `,
		"unknown type":  `{"R1": {"Type_Cote": "Filetage"}}`,
		"unknown tag":   `{"R1": {"Tolérances_GPS": ["Rugosité"]}}`,
		"bad slot":      `{"R1": {"Position_Angulaire": "Nord"}}`,
		"angle range":   `{"R1": {"Angle_Degres": 400}}`,
		"group id":      `{"R1": {"Groupe_Profil": 0}}`,
		"fraction id":   `{"R1": {"Groupe_Profil": 1.5}}`,
		"empty name":    `{" ": {}}`,
		"bad number":    `{"R1": {"Angle_Degres": "abc"}}`,
		"not an object": `[]`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			r := classifiedRegistry(t)
			var before bytes.Buffer
			require.NoError(t, r.WriteJSON(&before))

			_, err := r.ImportJSON(strings.NewReader(doc), ImportReplace)

			var ve *apierrors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)

			var after bytes.Buffer
			require.NoError(t, r.WriteJSON(&after))
			assert.Equal(t, before.String(), after.String())
		})
	}
}

func TestParseImportMode(t *testing.T) {
	m, err := ParseImportMode("")
	require.NoError(t, err)
	assert.Equal(t, ImportMerge, m)

	m, err = ParseImportMode("REPLACE")
	require.NoError(t, err)
	assert.Equal(t, ImportReplace, m)

	_, err = ParseImportMode("append")
	assert.Error(t, err)
}

func TestDocumentSchema(t *testing.T) {
	schema, err := DocumentSchemaMap()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	entry, ok := schema["additionalProperties"].(map[string]interface{})
	require.True(t, ok, "entries are described by additionalProperties")

	props := entry["properties"].(map[string]interface{})
	typeProp := props["Type_Cote"].(map[string]interface{})
	assert.Contains(t, typeProp["enum"], "Rayon")
	assert.Len(t, typeProp["enum"], len(domain.FunctionalTypes()))

	tags := props["Tolérances_GPS"].(map[string]interface{})["items"].(map[string]interface{})
	assert.Contains(t, tags["enum"], "Planéité")

	assert.ElementsMatch(t,
		[]interface{}{"Type_Cote", "Tolérances_GPS", "Groupe_Profil", "Position_Angulaire", "Angle_Degres"},
		entry["required"])
}
