package structure

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed structure.schema.json
var schemaJSON string

// SchemaJSON returns the JSON Schema for persisted structure documents.
func SchemaJSON() string { return schemaJSON }

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("structure.schema.json", schemaJSON)
})

// ValidateSchema checks raw against the document schema. It is a structural
// check only; Decode performs the same checks plus shape and registry-free
// identifier validation.
func ValidateSchema(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile structure schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return s.Validate(v)
}
