package verify

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// sidecarSchema is the contract for the structured sidecar document: a
// text field plus an ordered collection of tables, each a collection
// of rows of cell values.
const sidecarSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["text", "tables"],
  "properties": {
    "text": { "type": "string" },
    "tables": {
      "type": "array",
      "items": {
        "type": "array",
        "items": {
          "type": "array",
          "items": { "type": "string" }
        }
      }
    }
  }
}`

var compiledSidecarSchema = jsonschema.MustCompileString("sidecar.schema.json", sidecarSchema)

// validateSidecar checks raw sidecar bytes against the schema.
func validateSidecar(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("sidecar is not valid JSON: %w", err)
	}
	if err := compiledSidecarSchema.Validate(v); err != nil {
		return fmt.Errorf("sidecar schema: %w", err)
	}
	return nil
}
