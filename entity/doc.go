// Package entity maps plain nested key-value data onto typed struct graphs and
// back.
//
// The declared shape of a struct is the single source of truth: every exported
// field is a required key unless it is nullable (a pointer), tagged optional, or
// already holds a value from construction. Unknown keys, unexported targets,
// values of the wrong kind and unset fields are all rejected with an *Error
// wrapping one of the Err* sentinels.
//
// Field declarations:
//
//	type User struct {
//		Name     string         `entity:"name"`
//		Age      int            `entity:"age"`
//		Location UserLocation   `entity:"location"`
//		Friend   *User          `entity:"friend"`           // nullable, defaults to null
//		Extra    map[string]any `entity:"extra,optional"`   // copied verbatim
//		Owner    *User          `entity:"owner,notnull"`    // pointer that must not be nil
//		Internal string         `entity:"-"`                // not part of the map form
//	}
//
// Supported declared types are bool, signed and unsigned integers, floats,
// strings (including named types over them), map[string]any, other structs and
// pointers to any of these. A field of type any declares no type and is reported
// with ErrMissingTypeDeclaration; slices, channels, functions, non-empty
// interfaces and structs without exported fields are reported with
// ErrUnsupportedType when touched.
//
// Descriptor tables are derived once per type. Types implementing Describer
// (see cmd/entitygen) provide a generated table that is verified against the
// live type instead of being rebuilt with reflection.
package entity
