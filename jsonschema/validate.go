package jsonschema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"entity-mapper/entity"
)

// ErrInvalidDocument is returned when a document fails validation. The error
// text lists every offending field.
var ErrInvalidDocument = errors.New("document does not match entity schema")

// Validator checks raw documents against the schema of one entity type before
// they reach the mapper.
type Validator struct {
	doc    *Document
	schema *gojsonschema.Schema
}

// NewValidator generates and compiles the schema of t.
func NewValidator(m *entity.Mapper, t reflect.Type) (*Validator, error) {
	doc, err := Generate(m, t)
	if err != nil {
		return nil, err
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", t, err)
	}

	return &Validator{doc: doc, schema: schema}, nil
}

// Document returns the generated schema.
func (v *Validator) Document() *Document {
	return v.doc
}

// Validate checks a JSON document.
func (v *Validator) Validate(data []byte) error {
	return v.validate(gojsonschema.NewBytesLoader(data))
}

// ValidateMap checks an already decoded source map.
func (v *Validator) ValidateMap(src entity.Map) error {
	return v.validate(gojsonschema.NewGoLoader(src))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) error {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	for _, desc := range result.Errors() {
		fmt.Fprintf(&sb, "\n  - %s: %s", desc.Field(), desc.Description())
	}

	return fmt.Errorf("%w:%s", ErrInvalidDocument, sb.String())
}
