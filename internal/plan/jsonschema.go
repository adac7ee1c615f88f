package plan

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/roach88/figbridge/internal/ir"
)

// SchemaID identifies the exported JSON Schema.
const SchemaID = "https://github.com/roach88/figbridge/schemas/plan-v1.json"

// JSONSchema produces a JSON Schema (Draft 2020-12) for plan documents, for
// editors that do not speak CUE.
func JSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false
	r.AllowAdditionalProperties = true

	s := r.Reflect(&ir.Plan{})
	s.ID = SchemaID
	s.Title = "figbridge plan"
	s.Description = "Ordered operations applied to a design document through the bridge plugin"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
