package integration

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ResultSchema renders the JSON schema the extraction prompt embeds, so
// the model is told the exact shape and enum values it must produce.
func ResultSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(Result{})
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Reflection over our own static type cannot fail at runtime.
		panic(err)
	}
	return string(b)
}
