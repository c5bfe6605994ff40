// Package schema defines the shapes every structured model response must parse into
// and the strict decoder that enforces them.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// Shape lists the types a structured completion can be decoded into.
type Shape interface {
	ValidityCheck | WorkflowIntent | FitScore | EditSuggestions | TailoringAssessment | SearchQuery
}

// Schema is the JSON schema of one Shape.
type Schema struct {
	// Name identifies the schema in provider requests.
	Name string
	// Definition is the generated schema tree.
	Definition *jsonschema.Definition
	// Raw is the JSON encoding of Definition.
	Raw json.RawMessage

	loader gojsonschema.JSONLoader
	once   sync.Once
	parsed *gojsonschema.Schema
	err    error
}

// Strict reports whether every property is required. Providers with a strict
// structured-output mode only accept such schemas.
func (s *Schema) Strict() bool {
	return len(s.Definition.Required) == len(s.Definition.Properties)
}

func (s *Schema) compiled() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.parsed, s.err = gojsonschema.NewSchema(s.loader)
	})
	return s.parsed, s.err
}

var registry sync.Map

// For returns the schema of T, generating it on first use.
func For[T Shape]() (*Schema, error) {
	var zero T
	typ := reflect.TypeOf(zero)

	if cached, ok := registry.Load(typ); ok {
		return cached.(*Schema), nil
	}

	def, err := jsonschema.GenerateSchemaForType(zero)
	if err != nil {
		return nil, fmt.Errorf("generate schema for %s: %w", typ.Name(), err)
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", typ.Name(), err)
	}

	s := &Schema{
		Name:       nameOf(typ),
		Definition: def,
		Raw:        raw,
		loader:     gojsonschema.NewBytesLoader(raw),
	}

	actual, _ := registry.LoadOrStore(typ, s)
	return actual.(*Schema), nil
}

// MustFor is For for package-level initialization and tests.
func MustFor[T Shape]() *Schema {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// nameOf converts a Go type name to the snake_case name providers expect.
func nameOf(typ reflect.Type) string {
	name := typ.Name()
	out := make([]rune, 0, len(name)+4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
