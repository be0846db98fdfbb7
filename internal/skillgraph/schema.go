package skillgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// catalogSchema describes a catalog document:
//
//	skills:
//	  - id: math_3_1.1.1.1
//	    grade_level: 3
//	    prerequisites: [math_2_1.1.1.1]
//	    forgetting_rate: 0.1
//	    difficulty: 0.4
var catalogSchema = map[string]any{
	"type":     "object",
	"required": []any{"skills"},
	"properties": map[string]any{
		"skills": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "grade_level", "forgetting_rate"},
				"properties": map[string]any{
					"id":              map[string]any{"type": "string", "minLength": 1},
					"name":            map[string]any{"type": "string"},
					"grade_level":     map[string]any{"type": "integer", "minimum": 0, "maximum": 12},
					"prerequisites":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"forgetting_rate": map[string]any{"type": "number", "exclusiveMinimum": 0},
					"difficulty":      map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// validateDocument checks a decoded YAML/JSON document against catalogSchema.
func validateDocument(doc any) error {
	compileOnce.Do(func() {
		compiled, compileErr = compile("schema://dash/catalog.json", catalogSchema)
	})
	if compileErr != nil {
		return fmt.Errorf("compile catalog schema: %w", compileErr)
	}

	// The validator wants plain JSON values; round-trip through encoding/json.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode catalog document: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode catalog document: %w", err)
	}
	if err := compiled.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compile(url string, def map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(url)
}
