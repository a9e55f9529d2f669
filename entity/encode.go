package entity

import (
	"fmt"
	"maps"
	"reflect"

	"entity-mapper/fieldkind"
)

// visit identifies an entity pointer on the current traversal path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// ToMap converts v, a struct or a non-nil pointer to a struct, into a new Map.
// Exported fields are emitted under their keys; v is never modified.
func (m *Mapper) ToMap(v any) (Map, error) {
	rv := reflect.ValueOf(v)
	seen := make(map[visit]struct{})

	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, newError(ErrInvalidTarget, nil, "", fmt.Sprintf("got nil %T", v))
		}

		seen[visit{rv.Pointer(), rv.Type()}] = struct{}{}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, newError(ErrInvalidTarget, nil, "", fmt.Sprintf("got %T", v))
	}

	return m.toMap(rv, seen)
}

func (m *Mapper) toMap(obj reflect.Value, seen map[visit]struct{}) (Map, error) {
	schema, err := m.SchemaOf(obj.Type())
	if err != nil {
		return nil, err
	}

	out := make(Map, len(schema.Fields))

	for i := range schema.Fields {
		f := &schema.Fields[i]
		if !f.Exported {
			continue
		}

		val, err := m.fieldValue(obj.Field(f.Index), schema, f, seen)
		if err != nil {
			return nil, err
		}

		out[f.Key] = val
	}

	return out, nil
}

func (m *Mapper) fieldValue(fv reflect.Value, schema *Schema, f *Field, seen map[visit]struct{}) (any, error) {
	if f.Kind == fieldkind.KindMap {
		if fv.IsNil() {
			return nil, newError(ErrUninitializedField, schema, f.Key, "must not be accessed before initialization")
		}

		return maps.Clone(fv.Convert(plainMapType).Interface().(map[string]any)), nil
	}

	if err := f.declError(schema); err != nil {
		return nil, err
	}

	if f.IsPointer() {
		if fv.IsNil() {
			if f.Nullable {
				return nil, nil
			}

			return nil, newError(ErrUnsupportedType, schema, f.Key, "null held by non-nullable field")
		}

		if f.Kind == fieldkind.KindEntity {
			key := visit{fv.Pointer(), fv.Type()}
			if _, ok := seen[key]; ok {
				return nil, newError(ErrCyclicReference, schema, f.Key, fmt.Sprintf("%s revisited", f.Type))
			}

			seen[key] = struct{}{}
			defer delete(seen, key)
		}

		fv = fv.Elem()
	}

	if f.Kind.IsScalar() {
		return fv.Interface(), nil
	}

	nested, err := m.toMap(fv, seen)
	if err != nil {
		return nil, withParent(err, schema, f.Key)
	}

	return nested, nil
}
