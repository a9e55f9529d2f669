package entity

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"

	"entity-mapper/fieldkind"
	"entity-mapper/internal/suggest"
)

var plainMapType = reflect.TypeFor[map[string]any]()

// FromMap populates target, a non-nil pointer to a struct, from src.
//
// Keys are applied in lexical order. On error target may be partially
// populated and must be discarded.
func (m *Mapper) FromMap(target any, src Map) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return newError(ErrInvalidTarget, nil, "", fmt.Sprintf("got %T", target))
	}

	return m.fromMap(rv.Elem(), src)
}

func (m *Mapper) fromMap(obj reflect.Value, src Map) error {
	schema, err := m.SchemaOf(obj.Type())
	if err != nil {
		return err
	}

	keys := slices.Sorted(maps.Keys(src))
	fields := make([]*Field, len(keys))

	// every key must resolve before any value is looked at
	for i, key := range keys {
		f, ok := schema.Lookup(key)
		if !ok {
			return newError(ErrUnknownField, schema, key, schema.suggest(key))
		}

		fields[i] = f
	}

	for i, f := range fields {
		if !f.Exported {
			return newError(ErrAccessibility, schema, keys[i], "")
		}
	}

	assigned := make(map[int]struct{}, len(src))

	for i, key := range keys {
		f := fields[i]
		if err := m.assign(obj.Field(f.Index), schema, f, src[key]); err != nil {
			return err
		}

		assigned[f.Index] = struct{}{}
	}

	for i := range schema.Fields {
		f := &schema.Fields[i]
		if !f.Exported {
			continue
		}

		if _, ok := assigned[f.Index]; ok {
			continue
		}

		// nullable fields default to null, optional ones keep whatever was constructed
		if f.Nullable || f.Optional || !obj.Field(f.Index).IsZero() {
			continue
		}

		e := newError(ErrUninitializedField, schema, f.Key, "required field is missing from map")
		e.Context = src

		return e
	}

	return nil
}

// suggest names the exported key closest to a misspelled one, if any.
func (s *Schema) suggest(key string) string {
	keys := make([]string, 0, len(s.Fields))
	for i := range s.Fields {
		if s.Fields[i].Exported {
			keys = append(keys, s.Fields[i].Key)
		}
	}

	if best, ok := suggest.Closest(key, keys); ok {
		return fmt.Sprintf("did you mean %q?", best)
	}

	return ""
}

func (m *Mapper) assign(dst reflect.Value, schema *Schema, f *Field, v any) error {
	if nested, ok := asMap(v); ok {
		if nested == nil {
			return m.assign(dst, schema, f, nil)
		}

		return m.assignMap(dst, schema, f, nested)
	}

	if v != nil && !isScalar(v) {
		return newError(ErrUnsupportedValue, schema, f.Key, fmt.Sprintf("got %T", v))
	}

	if err := f.declError(schema); err != nil {
		return err
	}

	if v == nil {
		if !f.Nullable {
			return newError(ErrTypeMismatch, schema, f.Key, "null assigned to non-nullable field")
		}

		dst.SetZero()

		return nil
	}

	val, err := convertScalar(v, f.Elem(), f.Kind)
	if err != nil {
		return newError(ErrTypeMismatch, schema, f.Key, err.Error())
	}

	if f.IsPointer() {
		ptr := reflect.New(f.Elem())
		ptr.Elem().Set(val)
		val = ptr
	}

	dst.Set(val)

	return nil
}

func (m *Mapper) assignMap(dst reflect.Value, schema *Schema, f *Field, v Map) error {
	switch f.Kind {
	case fieldkind.KindMap:
		// copied verbatim: the contents are never interpreted
		dst.Set(reflect.ValueOf(maps.Clone(map[string]any(v))).Convert(f.Type))
		return nil

	case fieldkind.KindEntity:
		ptr := reflect.New(f.Elem())
		if err := m.fromMap(ptr.Elem(), v); err != nil {
			return withParent(err, schema, f.Key)
		}

		if f.IsPointer() {
			dst.Set(ptr)
		} else {
			dst.Set(ptr.Elem())
		}

		return nil

	case fieldkind.KindUntyped:
		return f.declError(schema)
	}

	return newError(ErrInvalidFieldType, schema, f.Key,
		fmt.Sprintf("declared type %s must be an entity type to accept a map", f.Type))
}

func asMap(v any) (Map, bool) {
	switch val := v.(type) {
	case Map:
		return val, true
	case map[string]any:
		return val, true
	}

	return nil, false
}

func isScalar(v any) bool {
	if _, ok := v.(json.Number); ok {
		return true
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}

// convertScalar produces a value of type t from a scalar without silent
// coercion: integers widen into floats when exact, nothing else crosses kinds.
func convertScalar(v any, t reflect.Type, k fieldkind.KindEnum) (reflect.Value, error) {
	out := reflect.New(t).Elem()

	if n, ok := v.(json.Number); ok {
		return out, convertNumber(n, out, k)
	}

	rv := reflect.ValueOf(v)

	switch k {
	case fieldkind.KindBool:
		if rv.Kind() != reflect.Bool {
			return out, mismatch(v, t)
		}

		out.SetBool(rv.Bool())

	case fieldkind.KindString:
		if rv.Kind() != reflect.String {
			return out, mismatch(v, t)
		}

		out.SetString(rv.String())

	case fieldkind.KindInt:
		i, ok := toInt64(rv)
		if !ok {
			return out, mismatch(v, t)
		}

		if out.OverflowInt(i) {
			return out, overflow(v, t)
		}

		out.SetInt(i)

	case fieldkind.KindUint:
		u, ok := toUint64(rv)
		if !ok {
			return out, mismatch(v, t)
		}

		if out.OverflowUint(u) {
			return out, overflow(v, t)
		}

		out.SetUint(u)

	case fieldkind.KindFloat:
		f, exact, ok := toFloat64(rv, t.Bits())
		if !ok {
			return out, mismatch(v, t)
		}

		if !exact {
			return out, inexact(v, t)
		}

		if out.OverflowFloat(f) {
			return out, overflow(v, t)
		}

		out.SetFloat(f)

	default:
		return out, mismatch(v, t)
	}

	return out, nil
}

func convertNumber(n json.Number, out reflect.Value, k fieldkind.KindEnum) error {
	switch k {
	case fieldkind.KindInt:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil || out.OverflowInt(i) {
			return fmt.Errorf("number %s does not fit %s", n, out.Type())
		}

		out.SetInt(i)

	case fieldkind.KindUint:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil || out.OverflowUint(u) {
			return fmt.Errorf("number %s does not fit %s", n, out.Type())
		}

		out.SetUint(u)

	case fieldkind.KindFloat:
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			if _, exact := intToFloat(i, out.Type().Bits()); !exact {
				return inexact(n, out.Type())
			}
		} else if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			if _, exact := uintToFloat(u, out.Type().Bits()); !exact {
				return inexact(n, out.Type())
			}
		}

		f, err := n.Float64()
		if err != nil || out.OverflowFloat(f) {
			return fmt.Errorf("number %s does not fit %s", n, out.Type())
		}

		out.SetFloat(f)

	default:
		return mismatch(n, out.Type())
	}

	return nil
}

func toInt64(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}

		return int64(u), true
	}

	return 0, false
}

func toUint64(rv reflect.Value) (uint64, bool) {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < 0 {
			return 0, false
		}

		return uint64(i), true
	}

	return 0, false
}

// toFloat64 converts a numeric value for a float of the given size. exact is
// false when an integer has no exact representation there.
func toFloat64(rv reflect.Value, bits int) (f float64, exact, ok bool) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, exact = intToFloat(rv.Int(), bits)
		return f, exact, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, exact = uintToFloat(rv.Uint(), bits)
		return f, exact, true
	}

	return 0, false, false
}

func intToFloat(i int64, bits int) (float64, bool) {
	f := float64(i)
	if bits == 32 {
		f = float64(float32(f))
	}

	return f, f < 0x1p63 && int64(f) == i
}

func uintToFloat(u uint64, bits int) (float64, bool) {
	f := float64(u)
	if bits == 32 {
		f = float64(float32(f))
	}

	return f, f < 0x1p64 && uint64(f) == u
}

func mismatch(v any, t reflect.Type) error {
	return fmt.Errorf("cannot assign %T to %s", v, t)
}

func inexact(v any, t reflect.Type) error {
	return fmt.Errorf("value %v has no exact %s representation", v, t)
}

func overflow(v any, t reflect.Type) error {
	return fmt.Errorf("value %v overflows %s", v, t)
}
