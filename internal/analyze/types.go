package analyze

import (
	"go/types"
	"reflect"

	"entity-mapper/fieldkind"
)

// TypeID uniquely identifies a type by its package path and name.
type TypeID struct {
	PkgPath string // e.g., "entity-mapper/examples/users"
	Name    string // e.g., "User"
}

// String returns a human-readable representation of the TypeID.
func (t TypeID) String() string {
	if t.PkgPath == "" {
		return t.Name
	}

	return t.PkgPath + "." + t.Name
}

// TypeInfo describes an entity type.
type TypeInfo struct {
	ID      TypeID      // Unique identifier
	PkgName string      // Package name, e.g. "users"
	Fields  []FieldInfo // Declaration order, skipped fields left out
	GoType  types.Type  // The original go/types.Type
}

// QualifiedName returns the name reflection reports for the type, e.g. "users.User".
func (t *TypeInfo) QualifiedName() string {
	return t.PkgName + "." + t.ID.Name
}

// Field returns the field stored under key.
func (t *TypeInfo) Field(key string) *FieldInfo {
	for i := range t.Fields {
		if t.Fields[i].Key == key {
			return &t.Fields[i]
		}
	}

	return nil
}

// FieldInfo describes a struct field.
type FieldInfo struct {
	Name     string            // Go field name
	Index    int               // Field index in the struct
	Exported bool              // Whether the field is exported
	Embedded bool              // Whether the field is embedded (anonymous)
	Tag      reflect.StructTag // Raw struct tag

	Key      string // Map key
	Optional bool
	NotNull  bool

	Kind     fieldkind.KindEnum
	Nullable bool
	TypeExpr string  // Go expression of the declared type, qualified for the declaring package
	Entity   *TypeID // Named entity type behind a KindEntity field

	GoType types.Type
}

// TypeGraph holds all analyzed entity types from loaded packages.
type TypeGraph struct {
	// Types maps TypeID to TypeInfo for all entity types.
	Types map[TypeID]*TypeInfo
	// Packages maps package paths to their package info.
	Packages map[string]*PackageInfo
}

// NewTypeGraph creates a new empty TypeGraph.
func NewTypeGraph() *TypeGraph {
	return &TypeGraph{
		Types:    make(map[TypeID]*TypeInfo),
		Packages: make(map[string]*PackageInfo),
	}
}

// GetType returns the TypeInfo for a given TypeID, or nil if not found.
func (g *TypeGraph) GetType(id TypeID) *TypeInfo {
	return g.Types[id]
}

// PackageInfo holds information about a loaded package.
type PackageInfo struct {
	Path    string            // Import path
	Name    string            // Package name
	Dir     string            // Directory holding the package sources
	Module  string            // Path of the module the package belongs to
	Types   []TypeID          // Entity types defined in this package, sorted by name
	Imports map[string]string // Import path -> package name, for every TypeExpr qualifier
}
