package analyze

import (
	"fmt"
	"go/types"
	"path/filepath"
	"reflect"
	"sort"

	"golang.org/x/tools/go/packages"

	"entity-mapper/entity"
	"entity-mapper/fieldkind"
	"entity-mapper/internal/diagnostic"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedModule

// Analyzer loads Go packages and extracts their entity types.
type Analyzer struct {
	// Dir is the directory the go command runs in. Empty means the current one.
	Dir string

	tagKey string
	graph  *TypeGraph
	diags  diagnostic.Diagnostics
}

// NewAnalyzer creates a new Analyzer reading the given struct tag key.
func NewAnalyzer(tagKey string) *Analyzer {
	if tagKey == "" {
		tagKey = entity.DefaultTagKey
	}

	return &Analyzer{
		tagKey: tagKey,
		graph:  NewTypeGraph(),
	}
}

// LoadPackages loads the specified packages and records their entity types.
// Patterns are standard Go package patterns (e.g., "./examples/users").
func (a *Analyzer) LoadPackages(patterns ...string) (*TypeGraph, error) {
	cfg := &packages.Config{
		Mode: LoadMode,
		Dir:  a.Dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	// Check for package errors
	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs)
	}

	for _, pkg := range pkgs {
		a.processPackage(pkg)
	}

	return a.graph, nil
}

// Graph returns the current type graph.
func (a *Analyzer) Graph() *TypeGraph {
	return a.graph
}

// Diagnostics returns the findings collected so far.
func (a *Analyzer) Diagnostics() *diagnostic.Diagnostics {
	return &a.diags
}

// processPackage extracts entity types from a loaded package.
func (a *Analyzer) processPackage(pkg *packages.Package) {
	pkgInfo := &PackageInfo{
		Path:    pkg.PkgPath,
		Name:    pkg.Name,
		Imports: make(map[string]string),
	}

	if pkg.Module != nil {
		pkgInfo.Module = pkg.Module.Path
	}

	if len(pkg.GoFiles) > 0 {
		pkgInfo.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !typeName.Exported() || typeName.IsAlias() {
			continue
		}

		named, ok := typeName.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}

		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			continue
		}

		id := TypeID{PkgPath: pkg.PkgPath, Name: name}

		if !hasExportedField(st) {
			a.diags.AddInfo(diagnostic.CodeNoExportedFields,
				"struct has no exported fields and is not an entity", pkg.Name+"."+name, "")

			continue
		}

		info := &TypeInfo{ID: id, PkgName: pkg.Name, GoType: named}
		a.analyzeStructFields(pkgInfo, st, info)

		a.graph.Types[id] = info
		pkgInfo.Types = append(pkgInfo.Types, id)
	}

	sort.Slice(pkgInfo.Types, func(i, j int) bool {
		return pkgInfo.Types[i].Name < pkgInfo.Types[j].Name
	})

	a.graph.Packages[pkg.PkgPath] = pkgInfo
}

// analyzeStructFields extracts fields from a struct type and reports defects.
func (a *Analyzer) analyzeStructFields(pkgInfo *PackageInfo, st *types.Struct, info *TypeInfo) {
	qualifier := func(p *types.Package) string {
		if p.Path() == pkgInfo.Path {
			return ""
		}

		pkgInfo.Imports[p.Path()] = p.Name()

		return p.Name()
	}

	owners := make(map[string]string)
	typeName := info.QualifiedName()

	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		rawTag := reflect.StructTag(st.Tag(i))

		tag := entity.ParseTag(field.Name(), rawTag, a.tagKey)
		if tag.Skip {
			continue
		}

		fieldInfo := FieldInfo{
			Name:     field.Name(),
			Index:    i,
			Exported: field.Exported(),
			Embedded: field.Embedded(),
			Tag:      rawTag,
			Key:      tag.Key,
			Optional: tag.Optional,
			NotNull:  tag.NotNull,
			TypeExpr: types.TypeString(field.Type(), qualifier),
			GoType:   field.Type(),
		}
		fieldInfo.Kind, fieldInfo.Nullable = classify(field.Type(), tag.NotNull)

		if fieldInfo.Kind == fieldkind.KindEntity {
			fieldInfo.Entity = entityID(field.Type())
		}

		info.Fields = append(info.Fields, fieldInfo)

		if !field.Exported() {
			if _, ok := rawTag.Lookup(a.tagKey); ok {
				a.diags.AddWarning(diagnostic.CodeUnexportedField,
					fmt.Sprintf("field %s is not exported and is never mapped", field.Name()), typeName, tag.Key)
			}

			continue
		}

		if prev, ok := owners[tag.Key]; ok {
			a.diags.AddError(diagnostic.CodeDuplicateKey,
				fmt.Sprintf("key %q is used by %s and %s", tag.Key, prev, field.Name()), typeName, tag.Key)
		}

		owners[tag.Key] = field.Name()

		a.reportKind(&fieldInfo, typeName)
	}
}

func (a *Analyzer) reportKind(f *FieldInfo, typeName string) {
	switch f.Kind {
	case 0:
		a.diags.AddError(diagnostic.CodeUnsupportedType,
			fmt.Sprintf("type %s is unsupported", f.TypeExpr), typeName, f.Key)
	case fieldkind.KindOpaque:
		a.diags.AddError(diagnostic.CodeOpaqueType,
			fmt.Sprintf("type %s is opaque", f.TypeExpr), typeName, f.Key)
	case fieldkind.KindUntyped:
		a.diags.AddError(diagnostic.CodeMissingTypeDeclaration,
			"declared as "+f.TypeExpr, typeName, f.Key)
	}
}

// GetStruct returns the TypeInfo of an entity type.
func (a *Analyzer) GetStruct(pkgPath, typeName string) (*TypeInfo, error) {
	id := TypeID{PkgPath: pkgPath, Name: typeName}

	info := a.graph.GetType(id)
	if info == nil {
		a.diags.AddError(diagnostic.CodeTypeNotFound,
			fmt.Sprintf("type %s not found or not an entity", id), id.String(), "")

		return nil, fmt.Errorf("type %s not found", id)
	}

	return info, nil
}
