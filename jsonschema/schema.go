// Package jsonschema derives JSON Schema (draft-07) documents from entity
// descriptor tables and validates raw documents against them.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"entity-mapper/entity"
	"entity-mapper/fieldkind"
)

// Draft07 is the meta-schema URI written to every generated document.
const Draft07 = "http://json-schema.org/draft-07/schema#"

// Document is a self-contained schema: the root entity is referenced from
// Definitions, as is every entity reachable from it.
type Document struct {
	Schema      string                 `json:"$schema"`
	Ref         string                 `json:"$ref"`
	Definitions map[string]*Definition `json:"definitions"`
}

// Definition is the object schema of one entity type.
type Definition struct {
	Type                 string               `json:"type"`
	Properties           map[string]*Property `json:"properties"`
	Required             []string             `json:"required,omitempty"`
	AdditionalProperties bool                 `json:"additionalProperties"`
}

// Property is the schema of one field.
type Property struct {
	Type    any         `json:"type,omitempty"` // string or []string
	Ref     string      `json:"$ref,omitempty"`
	OneOf   []*Property `json:"oneOf,omitempty"`
	Minimum *float64    `json:"minimum,omitempty"`
	Maximum *float64    `json:"maximum,omitempty"`
}

// JSON renders the document indented.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Generate builds the schema document of the entity type t, a struct type or a
// pointer to one.
func Generate(m *entity.Mapper, t reflect.Type) (*Document, error) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if err := m.Check(t); err != nil {
		return nil, fmt.Errorf("generating schema: %w", err)
	}

	doc := &Document{
		Schema:      Draft07,
		Ref:         refTo(t),
		Definitions: make(map[string]*Definition),
	}

	queue := []reflect.Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		name := definitionName(cur)
		if _, ok := doc.Definitions[name]; ok {
			continue
		}

		s, err := m.SchemaOf(cur)
		if err != nil {
			return nil, fmt.Errorf("generating schema: %w", err)
		}

		def, nested := definitionOf(s)
		doc.Definitions[name] = def
		queue = append(queue, nested...)
	}

	return doc, nil
}

func definitionOf(s *entity.Schema) (*Definition, []reflect.Type) {
	def := &Definition{
		Type:       "object",
		Properties: make(map[string]*Property, len(s.Fields)),
	}

	var nested []reflect.Type

	for i := range s.Fields {
		f := &s.Fields[i]
		if !f.Exported {
			continue
		}

		def.Properties[f.Key] = propertyOf(f)

		if !f.Nullable && !f.Optional {
			def.Required = append(def.Required, f.Key)
		}

		if f.Kind == fieldkind.KindEntity {
			nested = append(nested, f.Elem())
		}
	}

	return def, nested
}

func propertyOf(f *entity.Field) *Property {
	if f.Kind == fieldkind.KindEntity {
		ref := &Property{Ref: refTo(f.Elem())}
		if !f.Nullable {
			return ref
		}

		return &Property{OneOf: []*Property{ref, {Type: "null"}}}
	}

	p := &Property{}
	name := typeName(f.Kind)

	if f.Nullable {
		p.Type = []string{name, "null"}
	} else {
		p.Type = name
	}

	if f.Kind.IsNumber() {
		p.Minimum, p.Maximum = bounds(f.Elem(), f.Kind)
	}

	return p
}

func typeName(k fieldkind.KindEnum) string {
	switch k {
	case fieldkind.KindBool:
		return "boolean"
	case fieldkind.KindInt, fieldkind.KindUint:
		return "integer"
	case fieldkind.KindFloat:
		return "number"
	case fieldkind.KindString:
		return "string"
	}

	return "object"
}

// bounds returns the range of sized integer types. 64-bit limits are left out
// because JSON numbers lose precision there.
func bounds(t reflect.Type, k fieldkind.KindEnum) (*float64, *float64) {
	bits := t.Bits

	switch k {
	case fieldkind.KindUint:
		low := 0.0
		if n := bits(); n < 64 {
			high := float64(uint64(1)<<n - 1)
			return &low, &high
		}

		return &low, nil

	case fieldkind.KindInt:
		if n := bits(); n < 64 {
			low := -float64(int64(1) << (n - 1))
			high := float64(int64(1)<<(n-1) - 1)

			return &low, &high
		}
	}

	return nil, nil
}

func refTo(t reflect.Type) string {
	return "#/definitions/" + definitionName(t)
}

// definitionName keeps names usable as JSON pointer tokens.
func definitionName(t reflect.Type) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}

		return '_'
	}, t.String())
}
