//go:generate go run ../tools/schema-generator -o ../schema/pantry.schema.json

package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the JSON Schema for the core pantry configuration.
// Extensions are not part of it.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Pantry Configuration"
	schema.Description = "Schema for the core pantry.yml properties."

	return json.MarshalIndent(schema, "", "  ")
}
