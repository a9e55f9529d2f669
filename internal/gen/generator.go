package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/types"
	"sort"
	"strings"
	"text/template"

	"entity-mapper/internal/analyze"
	"entity-mapper/internal/config"
)

const (
	reflectPkg   = "reflect"
	entityPkg    = "entity-mapper/entity"
	fieldkindPkg = "entity-mapper/fieldkind"
)

// GeneratorConfig holds configuration for code generation.
type GeneratorConfig struct {
	// DebugUnformatted keeps template output that fails to format next to the
	// intended file.
	DebugUnformatted bool
}

// Generator renders descriptor tables from an analyzed type graph.
type Generator struct {
	config GeneratorConfig
	graph  *analyze.TypeGraph
}

// NewGenerator creates a new Generator for the given type graph.
func NewGenerator(graph *analyze.TypeGraph, config GeneratorConfig) *Generator {
	return &Generator{config: config, graph: graph}
}

// GeneratedFile represents a generated Go source file.
type GeneratedFile struct {
	// Dir is the directory of the package the file belongs to.
	Dir string
	// Filename is the name of the file (e.g., "entity_gen.go").
	Filename string
	// Content is the formatted Go source code.
	Content []byte
}

// Generate renders one file per configured package.
func (g *Generator) Generate(cfg *config.File) ([]GeneratedFile, error) {
	files := make([]GeneratedFile, 0, len(cfg.Packages))

	for i := range cfg.Packages {
		file, err := g.GeneratePackage(&cfg.Packages[i])
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", cfg.Packages[i].Path, err)
		}

		files = append(files, *file)
	}

	return files, nil
}

// GeneratePackage renders the file of one package.
func (g *Generator) GeneratePackage(p *config.Package) (*GeneratedFile, error) {
	data, err := g.buildTemplateData(p)
	if err != nil {
		return nil, err
	}

	dir := g.graph.Packages[p.Path].Dir

	var buf bytes.Buffer
	if err := entityTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	file := &GeneratedFile{Dir: dir, Filename: p.Output, Content: buf.Bytes()}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		if g.config.DebugUnformatted {
			// best effort, the format error is what gets reported
			_ = writeFile(unformattedFile(*file))
		}

		return file, fmt.Errorf("formatting code: %w", err)
	}

	file.Content = formatted

	return file, nil
}

// templateData holds all data needed for one generated file.
type templateData struct {
	PackageName string
	StdImports  []importSpec
	Imports     []importSpec
	Types       []typeData
}

type importSpec struct {
	Alias string
	Path  string
}

type typeData struct {
	Name    string
	VarName string
	Fields  []fieldData
	FromMap bool
	ToMap   bool
	New     bool
}

type fieldData struct {
	Key      string
	GoName   string
	Index    int
	TypeExpr string
	Kind     string // fieldkind constant, empty for unsupported unexported fields
	Nullable bool
	Optional bool
	Exported bool
}

func (g *Generator) buildTemplateData(p *config.Package) (*templateData, error) {
	pkg, ok := g.graph.Packages[p.Path]
	if !ok {
		return nil, fmt.Errorf("package %s was not loaded", p.Path)
	}

	data := &templateData{PackageName: pkg.Name}
	imports := map[string]string{
		reflectPkg:   "reflect",
		entityPkg:    "entity",
		fieldkindPkg: "fieldkind",
	}

	for _, id := range pkg.Types {
		if !p.Selects(id.Name) {
			continue
		}

		t := g.graph.GetType(id)

		td, err := g.buildTypeData(pkg, t, imports)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", id.Name, err)
		}

		td.FromMap = p.HasMethod(config.MethodFromMap)
		td.ToMap = p.HasMethod(config.MethodToMap)
		td.New = p.HasMethod(config.MethodNew)

		data.Types = append(data.Types, *td)
	}

	if len(data.Types) == 0 {
		return nil, fmt.Errorf("no entity types selected in %s", p.Path)
	}

	if err := checkImportNames(imports); err != nil {
		return nil, err
	}

	for path, name := range imports {
		spec := importSpec{Path: path}
		if name != defaultImportName(path) {
			spec.Alias = name
		}

		if isStdPackage(path, pkg.Module) {
			data.StdImports = append(data.StdImports, spec)
		} else {
			data.Imports = append(data.Imports, spec)
		}
	}

	sortImports(data.StdImports)
	sortImports(data.Imports)

	return data, nil
}

func (g *Generator) buildTypeData(pkg *analyze.PackageInfo, t *analyze.TypeInfo, imports map[string]string) (*typeData, error) {
	td := &typeData{
		Name:    t.ID.Name,
		VarName: "entitySchema" + t.ID.Name,
	}

	for i := range t.Fields {
		f := &t.Fields[i]

		if f.Exported && !f.Kind.IsMappable() {
			return nil, fmt.Errorf("field %s: type %s cannot be mapped", f.Name, f.TypeExpr)
		}

		fd := fieldData{
			Key:      f.Key,
			GoName:   f.Name,
			Index:    f.Index,
			TypeExpr: g.typeExpr(pkg, f, imports),
			Nullable: f.Nullable,
			Optional: f.Optional,
			Exported: f.Exported,
		}

		if f.Kind.IsValid() {
			fd.Kind = "fieldkind." + f.Kind.String()
		}

		td.Fields = append(td.Fields, fd)
	}

	return td, nil
}

// typeExpr renders the field type relative to the generated package and records
// the imports it needs.
func (g *Generator) typeExpr(pkg *analyze.PackageInfo, f *analyze.FieldInfo, imports map[string]string) string {
	if f.GoType == nil {
		return f.TypeExpr
	}

	return types.TypeString(f.GoType, func(p *types.Package) string {
		if p.Path() == pkg.Path {
			return ""
		}

		imports[p.Path()] = p.Name()

		return p.Name()
	})
}

// checkImportNames rejects files that would import two packages under one name.
func checkImportNames(imports map[string]string) error {
	byName := make(map[string]string, len(imports))

	for path, name := range imports {
		if other, ok := byName[name]; ok {
			return fmt.Errorf("packages %s and %s are both imported as %s", other, path, name)
		}

		byName[name] = path
	}

	return nil
}

func defaultImportName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// isStdPackage reports whether the import path belongs to the standard library.
// Dotless module paths are told apart through the module of the generated package.
func isStdPackage(path, module string) bool {
	if path == module || strings.HasPrefix(path, module+"/") || strings.HasPrefix(path, "entity-mapper/") {
		return false
	}

	first, _, _ := strings.Cut(path, "/")

	return !strings.Contains(first, ".")
}

func sortImports(specs []importSpec) {
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Path < specs[j].Path
	})
}

var entityTemplate = template.Must(template.New("entity").Parse(`// Code generated by entitygen. DO NOT EDIT.

package {{.PackageName}}

import (
{{range .StdImports}}	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{end}}
{{range .Imports}}	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{end}})
{{range .Types}}
var {{.VarName}} = &entity.Schema{
	Type: reflect.TypeFor[{{.Name}}](),
	Fields: []entity.Field{
{{range .Fields}}		{Key: {{printf "%q" .Key}}, GoName: {{printf "%q" .GoName}}, Index: {{.Index}}, Type: reflect.TypeFor[{{.TypeExpr}}](){{if .Kind}}, Kind: {{.Kind}}{{end}}{{if .Nullable}}, Nullable: true{{end}}{{if .Optional}}, Optional: true{{end}}{{if .Exported}}, Exported: true{{end}}},
{{end}}	},
}

// EntitySchema returns the descriptor table of {{.Name}}.
func ({{.Name}}) EntitySchema() *entity.Schema {
	return {{.VarName}}
}
{{if .FromMap}}
// FromMap populates x from src.
func (x *{{.Name}}) FromMap(src entity.Map) error {
	return entity.FromMap(x, src)
}
{{end}}{{if .ToMap}}
// ToMap converts x into a new map.
func (x *{{.Name}}) ToMap() (entity.Map, error) {
	return entity.ToMap(x)
}
{{end}}{{if .New}}
// New{{.Name}} allocates a {{.Name}} populated from src.
func New{{.Name}}(src entity.Map) (*{{.Name}}, error) {
	return entity.New[{{.Name}}](src)
}
{{end}}{{end}}`))
