package entity

import (
	"fmt"
	"reflect"
	"sync"

	"entity-mapper/fieldkind"
)

// Map is the interchange form of an entity: string keys to nil, scalars or
// nested maps.
type Map map[string]any

// Field describes one struct field of an entity type.
type Field struct {
	Key      string       // map key
	GoName   string       // struct field name
	Index    int          // struct field index
	Type     reflect.Type // declared type, pointer included
	Kind     fieldkind.KindEnum
	Nullable bool
	Optional bool // absent key keeps the constructed value
	Exported bool
}

// Elem returns the declared type without its pointer.
func (f *Field) Elem() reflect.Type {
	if f.Type.Kind() == reflect.Pointer {
		return f.Type.Elem()
	}

	return f.Type
}

// IsPointer reports whether the field holds its value through a pointer.
func (f *Field) IsPointer() bool {
	return f.Type.Kind() == reflect.Pointer
}

// declError reports a field whose declared type the mapper cannot work with.
func (f *Field) declError(s *Schema) error {
	switch f.Kind {
	case fieldkind.KindUntyped:
		return newError(ErrMissingTypeDeclaration, s, f.Key, "declared as "+f.Type.String())
	case fieldkind.KindOpaque:
		return newError(ErrUnsupportedType, s, f.Key, fmt.Sprintf("type %q is opaque", f.Type))
	case 0:
		return newError(ErrUnsupportedType, s, f.Key, fmt.Sprintf("type %q is unsupported", f.Type))
	}

	return nil
}

// Schema is the field descriptor table of one entity type.
type Schema struct {
	Type   reflect.Type
	Fields []Field // declaration order

	once  sync.Once
	byKey map[string]int
}

// Name returns the qualified name of the entity type, e.g. "users.User".
func (s *Schema) Name() string {
	if s == nil || s.Type == nil {
		return ""
	}

	return s.Type.String()
}

// Lookup returns the field stored under key. Exported fields win over unexported
// ones sharing a key.
func (s *Schema) Lookup(key string) (*Field, bool) {
	s.once.Do(s.index)

	i, ok := s.byKey[key]
	if !ok {
		return nil, false
	}

	return &s.Fields[i], true
}

func (s *Schema) index() {
	s.byKey = make(map[string]int, len(s.Fields))

	for i := range s.Fields {
		prev, ok := s.byKey[s.Fields[i].Key]
		if ok && s.Fields[prev].Exported {
			continue
		}

		s.byKey[s.Fields[i].Key] = i
	}
}

// Describer is implemented by types carrying a generated descriptor table.
type Describer interface {
	EntitySchema() *Schema
}

var describerType = reflect.TypeFor[Describer]()

func describerOf(t reflect.Type) (Describer, bool) {
	switch {
	case t.Implements(describerType):
		d, ok := reflect.Zero(t).Interface().(Describer)
		return d, ok
	case reflect.PointerTo(t).Implements(describerType):
		d, ok := reflect.New(t).Interface().(Describer)
		return d, ok
	}

	return nil, false
}

// buildSchema derives the descriptor table of a struct type with reflection.
func buildSchema(t reflect.Type, tagKey string) *Schema {
	s := &Schema{Type: t, Fields: make([]Field, 0, t.NumField())}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		tag := ParseTag(sf.Name, sf.Tag, tagKey)
		if tag.Skip {
			continue
		}

		s.Fields = append(s.Fields, describeField(sf, i, tag))
	}

	return s
}

func describeField(sf reflect.StructField, index int, tag Tag) Field {
	f := Field{
		Key:      tag.Key,
		GoName:   sf.Name,
		Index:    index,
		Type:     sf.Type,
		Optional: tag.Optional,
		Exported: sf.IsExported(),
	}
	f.Kind, f.Nullable = classify(sf.Type, tag.NotNull)

	return f
}

// classify resolves the kind and nullability of a declared field type. Only one
// pointer level is allowed, and only in front of scalars and structs.
func classify(t reflect.Type, notNull bool) (fieldkind.KindEnum, bool) {
	nullable := false

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = !notNull

		switch t.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Interface:
			return 0, nullable
		}
	}

	k := fieldkind.FromReflectType(t)
	if k == fieldkind.KindOpaque && t.Kind() == reflect.Struct {
		if _, ok := describerOf(t); ok {
			k = fieldkind.KindEntity
		}
	}

	return k, nullable
}

// verifySchema checks a generated table against the live type.
func verifySchema(s *Schema, t reflect.Type, tagKey string) error {
	if s == nil {
		return newError(ErrSchemaMismatch, nil, "", t.String()+" returned no schema")
	}

	if s.Type != t {
		return newError(ErrSchemaMismatch, s, "", fmt.Sprintf("table describes %s, not %s", s.Type, t))
	}

	covered := make(map[int]struct{}, len(s.Fields))

	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Index < 0 || f.Index >= t.NumField() {
			return newError(ErrSchemaMismatch, s, f.Key, fmt.Sprintf("index %d out of range", f.Index))
		}

		sf := t.Field(f.Index)
		want := describeField(sf, f.Index, ParseTag(sf.Name, sf.Tag, tagKey))

		switch {
		case sf.Name != f.GoName:
			return newError(ErrSchemaMismatch, s, f.Key, fmt.Sprintf("index %d is %s, not %s", f.Index, sf.Name, f.GoName))
		case sf.Type != f.Type:
			return newError(ErrSchemaMismatch, s, f.Key, fmt.Sprintf("declared %s, table has %s", sf.Type, f.Type))
		case want.Kind != f.Kind || want.Nullable != f.Nullable || want.Exported != f.Exported:
			return newError(ErrSchemaMismatch, s, f.Key, "field classification is stale")
		}

		covered[f.Index] = struct{}{}
	}

	for i := 0; i < t.NumField(); i++ {
		if _, ok := covered[i]; ok {
			continue
		}

		sf := t.Field(i)
		if !ParseTag(sf.Name, sf.Tag, tagKey).Skip {
			return newError(ErrSchemaMismatch, s, sf.Name, "field is missing from the table")
		}
	}

	return nil
}
