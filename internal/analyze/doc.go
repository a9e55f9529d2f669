// Package analyze loads Go packages and extracts entity declarations.
//
// It uses golang.org/x/tools/go/packages with go/types to describe every
// exported struct with exported fields the way the entity mapper would at run
// time: map keys and options from struct tags, field kinds and nullability.
//
// Key types:
//   - TypeID: package import path + type name
//   - TypeInfo: one entity type and its fields
//   - FieldInfo: key, kind, nullability and the Go type expression of a field
package analyze
