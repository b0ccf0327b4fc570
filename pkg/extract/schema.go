package extract

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// SchemaID identifies the contract schema document.
const SchemaID = "https://github.com/leapstack-labs/leaplayout/schema/contract.json"

// Schema returns the JSON Schema of the contract artifact.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(core.ContractSpec))
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "leaplayout contract"
	s.Description = "Fixed-width record layouts sharing one line length, with optional document structure rules. Positions are 1-based and inclusive."
	return s
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
