package analyze

import (
	"go/types"

	"entity-mapper/fieldkind"
)

// describerMethod is the method carried by types with a generated descriptor table.
const describerMethod = "EntitySchema"

// classify resolves the kind and nullability of a declared field type, the
// static counterpart of the mapper's reflection-based classification.
func classify(t types.Type, notNull bool) (fieldkind.KindEnum, bool) {
	nullable := false

	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		t = ptr.Elem()
		nullable = !notNull

		switch t.Underlying().(type) {
		case *types.Pointer, *types.Map, *types.Interface:
			return 0, nullable
		}
	}

	k := kindOf(t)
	if k == fieldkind.KindOpaque && isStruct(t) && hasDescriber(t) {
		k = fieldkind.KindEntity
	}

	return k, nullable
}

// kindOf classifies a non-pointer type.
func kindOf(t types.Type) fieldkind.KindEnum {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()

		switch {
		case info&types.IsBoolean != 0:
			return fieldkind.KindBool
		case info&types.IsInteger != 0:
			if u.Kind() == types.Uintptr {
				return 0
			}

			if info&types.IsUnsigned != 0 {
				return fieldkind.KindUint
			}

			return fieldkind.KindInt
		case info&types.IsFloat != 0:
			return fieldkind.KindFloat
		case info&types.IsString != 0:
			return fieldkind.KindString
		}

	case *types.Map:
		if types.Identical(u.Key(), types.Typ[types.String]) && isEmptyInterface(u.Elem()) {
			return fieldkind.KindMap
		}

	case *types.Interface:
		if u.Empty() {
			return fieldkind.KindUntyped
		}

		return fieldkind.KindOpaque

	case *types.Struct:
		if hasExportedField(u) {
			return fieldkind.KindEntity
		}

		return fieldkind.KindOpaque
	}

	return 0
}

// isEmptyInterface matches interface{} and any, not named empty interfaces.
func isEmptyInterface(t types.Type) bool {
	iface, ok := types.Unalias(t).(*types.Interface)
	return ok && iface.Empty()
}

func isStruct(t types.Type) bool {
	_, ok := t.Underlying().(*types.Struct)
	return ok
}

func hasExportedField(st *types.Struct) bool {
	for i := 0; i < st.NumFields(); i++ {
		if st.Field(i).Exported() {
			return true
		}
	}

	return false
}

func hasDescriber(t types.Type) bool {
	obj, _, _ := types.LookupFieldOrMethod(types.NewPointer(t), true, nil, describerMethod)
	_, ok := obj.(*types.Func)

	return ok
}

// entityID returns the named type behind a KindEntity field.
func entityID(t types.Type) *TypeID {
	if ptr, ok := types.Unalias(t).(*types.Pointer); ok {
		t = ptr.Elem()
	}

	named, ok := types.Unalias(t).(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return nil
	}

	return &TypeID{PkgPath: named.Obj().Pkg().Path(), Name: named.Obj().Name()}
}
