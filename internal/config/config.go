package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"entity-mapper/entity"
	"entity-mapper/internal/analyze"
	"entity-mapper/internal/diagnostic"
	"entity-mapper/internal/suggest"
)

const (
	// CurrentVersion is the only config version understood.
	CurrentVersion = "1"
	// DefaultOutput is the generated file name inside each package directory.
	DefaultOutput = "entity_gen.go"
)

// Generated methods.
const (
	MethodFromMap = "from_map"
	MethodToMap   = "to_map"
	MethodNew     = "new"
)

var knownMethods = []string{MethodFromMap, MethodToMap, MethodNew}

// File is the root of an entitygen.yaml document.
type File struct {
	Version  string    `yaml:"version"`
	TagKey   string    `yaml:"tag_key,omitempty"`
	Packages []Package `yaml:"packages"`
}

// Package selects the entity types of one Go package.
type Package struct {
	Path    string   `yaml:"path"`
	Types   []string `yaml:"types,omitempty"`
	Output  string   `yaml:"output,omitempty"`
	Methods []string `yaml:"methods,omitempty"`
}

// HasMethod reports whether the named method is generated for the package.
func (p *Package) HasMethod(name string) bool {
	return slices.Contains(p.Methods, name)
}

// Selects reports whether the type is generated for the package.
func (p *Package) Selects(typeName string) bool {
	return len(p.Types) == 0 || slices.Contains(p.Types, typeName)
}

// LoadFile loads and parses a YAML config file from the given path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a File.
func Parse(data []byte) (*File, error) {
	var f File

	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&f)

	return &f, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(f *File) {
	if f.Version == "" {
		f.Version = CurrentVersion
	}

	if f.TagKey == "" {
		f.TagKey = entity.DefaultTagKey
	}

	for i := range f.Packages {
		p := &f.Packages[i]
		if p.Output == "" {
			p.Output = DefaultOutput
		}
	}
}

// Marshal serializes a File to YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// WriteFile writes a File to the given path.
func WriteFile(f *File, path string) error {
	data, err := Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// PackagePaths returns the import paths of every configured package.
func (f *File) PackagePaths() []string {
	paths := make([]string, 0, len(f.Packages))
	for _, p := range f.Packages {
		paths = append(paths, p.Path)
	}

	return paths
}

// Validate checks the config structure and, when graph is non-nil, that every
// listed type is a loaded entity type.
func Validate(f *File, graph *analyze.TypeGraph) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if f == nil {
		res.AddError("config_is_nil", "config file is nil", "", "")
		return res
	}

	if f.Version != CurrentVersion {
		res.AddError("unsupported_version", fmt.Sprintf("unsupported config version %q", f.Version), "", "")
	}

	if len(f.Packages) == 0 {
		res.AddError("no_packages", "no packages configured", "", "")
	}

	seen := make(map[string]struct{}, len(f.Packages))

	for i := range f.Packages {
		p := &f.Packages[i]

		if p.Path == "" {
			res.AddError("empty_package_path", fmt.Sprintf("package #%d has no path", i+1), "", "")
			continue
		}

		if _, ok := seen[p.Path]; ok {
			res.AddError("duplicate_package", fmt.Sprintf("package %q is configured twice", p.Path), p.Path, "")
		}

		seen[p.Path] = struct{}{}

		if !strings.HasSuffix(p.Output, ".go") || strings.ContainsAny(p.Output, `/\`) {
			res.AddError("invalid_output", fmt.Sprintf("output %q must be a .go file name", p.Output), p.Path, "")
		}

		for _, m := range p.Methods {
			if !slices.Contains(knownMethods, m) {
				res.AddError("unknown_method",
					fmt.Sprintf("unknown method %q, expected one of %s", m, strings.Join(knownMethods, ", ")), p.Path, "")
			}
		}

		if graph != nil {
			validateTypes(res, p, graph)
		}
	}

	return res
}

func validateTypes(res *diagnostic.Diagnostics, p *Package, graph *analyze.TypeGraph) {
	pkg, ok := graph.Packages[p.Path]
	if !ok {
		res.AddError("package_not_loaded", fmt.Sprintf("package %q was not loaded", p.Path), p.Path, "")
		return
	}

	if len(p.Types) == 0 && len(pkg.Types) == 0 {
		res.AddWarning("no_entities", "package declares no entity types", p.Path, "")
	}

	known := make([]string, 0, len(pkg.Types))
	for _, id := range pkg.Types {
		known = append(known, id.Name)
	}

	for _, name := range p.Types {
		if graph.GetType(analyze.TypeID{PkgPath: p.Path, Name: name}) != nil {
			continue
		}

		msg := fmt.Sprintf("type %q not found or not an entity", name)
		if best, ok := suggest.Closest(name, known); ok {
			msg += fmt.Sprintf(", did you mean %q?", best)
		}

		res.AddError(diagnostic.CodeTypeNotFound, msg, p.Path, name)
	}
}
