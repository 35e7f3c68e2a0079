package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schemaJSON []byte
	schemaErr  error
)

func reflectDocument() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(Document{})
	schema.Title = "Registre des cotes"
	schema.Description = "Profils des cotes indexés par Nom_Cote"
	return schema
}

// DocumentSchema returns the JSON Schema of the registry document, for
// client-side validation of imports.
func DocumentSchema() ([]byte, error) {
	schemaOnce.Do(func() {
		schemaJSON, schemaErr = json.MarshalIndent(reflectDocument(), "", "  ")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to marshal registry schema: %w", schemaErr)
		}
	})
	return schemaJSON, schemaErr
}

// DocumentSchemaMap returns the schema as a generic JSON object.
func DocumentSchemaMap() (map[string]interface{}, error) {
	b, err := DocumentSchema()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
