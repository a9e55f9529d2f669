package fieldkind

import (
	"reflect"
)

//go:generate go tool stringer -type=KindEnum -output=kind_string.go

// KindEnum is the declared-type category of an entity field.
type KindEnum int

const (
	_ KindEnum = iota // skip zero value, use it as a default (invalid) value for KindEnum

	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindMap     // map[string]any: unconstrained values, copied verbatim
	KindEntity  // struct with at least one exported field
	KindUntyped // empty interface: the field declares no type
	KindOpaque  // non-empty interface or struct without exported fields

	// KindTotal is a constant that represents the total number of kinds defined
	KindTotal = int(iota)
)

// IsScalar reports whether values of the kind are assigned from a single scalar.
func (k KindEnum) IsScalar() bool {
	switch k {
	default:
		return false
	case KindBool, KindInt, KindUint, KindFloat, KindString:
		return true
	}
}

// IsBasic reports whether the kind is copied as a raw value by ToMap.
func (k KindEnum) IsBasic() bool {
	return k.IsScalar() || k == KindMap
}

// IsNumber reports whether the kind holds a numeric value.
func (k KindEnum) IsNumber() bool {
	switch k {
	default:
		return false
	case KindInt, KindUint, KindFloat:
		return true
	}
}

// IsMappable reports whether fields of the kind can be converted in both directions.
func (k KindEnum) IsMappable() bool {
	return k.IsBasic() || k == KindEntity
}

// IsValid reports whether the kind names a category the mapper can work with.
func (k KindEnum) IsValid() bool {
	return k > 0 && int(k) < KindTotal
}

var (
	anyType    = reflect.TypeFor[any]()
	stringType = reflect.TypeFor[string]()
)

// FromReflectType classifies a non-pointer field type. Pointers must be peeled by
// the caller because they only carry nullability. Unsupported types yield the zero
// KindEnum.
func FromReflectType(rtype reflect.Type) KindEnum {
	if rtype == nil {
		return 0
	}

	switch rtype.Kind() {
	default:
		return 0
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Map:
		if rtype.Key() == stringType && rtype.Elem() == anyType {
			return KindMap
		}

		return 0
	case reflect.Interface:
		if rtype.NumMethod() == 0 {
			return KindUntyped
		}

		return KindOpaque
	case reflect.Struct:
		for i := 0; i < rtype.NumField(); i++ {
			if rtype.Field(i).IsExported() {
				return KindEntity
			}
		}

		return KindOpaque
	}
}
