package entity

import (
	"errors"
	"strings"
)

var (
	ErrMissingTypeDeclaration = errors.New("field has no type declaration")
	ErrUnsupportedType        = errors.New("field type is unsupported")
	ErrUnknownField           = errors.New("field does not exist")
	ErrAccessibility          = errors.New("field must have public accessibility")
	ErrInvalidFieldType       = errors.New("field type is not an entity type")
	ErrUnsupportedValue       = errors.New("value must be null, scalar or map")
	ErrUninitializedField     = errors.New("field has not been initialized")
	ErrTypeMismatch           = errors.New("value does not match declared field type")
	ErrCyclicReference        = errors.New("cyclic reference")
	ErrInvalidTarget          = errors.New("target must be a non-nil pointer to a struct")
	ErrSchemaMismatch         = errors.New("entity schema does not match type")
)

// Error is the single error type returned by the mapper. Kind is one of the
// Err* sentinels and is reachable through errors.Is.
type Error struct {
	Kind    error
	Type    string // entity type, e.g. "users.User"
	Field   string // dotted key path from the root entity
	Message string
	Context Map // diagnostic payload, set for ErrUninitializedField
}

func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString("entity")

	if e.Type != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Type)
	}

	if e.Field != "" {
		sb.WriteString(" field ")
		sb.WriteString(e.Field)
	}

	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, schema *Schema, field, message string) *Error {
	e := &Error{Kind: kind, Field: field, Message: message}
	if schema != nil {
		e.Type = schema.Name()
	}

	return e
}

// withParent re-roots a nested error at the parent entity, prefixing its field
// path with the parent key.
func withParent(err error, parent *Schema, key string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}

	out := *e
	out.Type = parent.Name()

	if out.Field == "" {
		out.Field = key
	} else {
		out.Field = key + "." + out.Field
	}

	return &out
}
