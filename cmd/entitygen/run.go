package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"entity-mapper/internal/analyze"
	"entity-mapper/internal/config"
	"entity-mapper/internal/diagnostic"
	"entity-mapper/internal/gen"
)

// keyPathDepth bounds the key paths listed in verbose mode.
const keyPathDepth = 4

var errStale = errors.New("generated files are out of date")

func run(cli *CLIConfig, logger *slog.Logger) error {
	cfg, err := config.LoadFile(cli.ConfigPath)
	if err != nil {
		return err
	}

	if diags := config.Validate(cfg, nil); diags.HasErrors() {
		logDiagnostics(logger, diags)
		return fmt.Errorf("invalid config: %w", diags.Error())
	}

	analyzer := analyze.NewAnalyzer(cfg.TagKey)
	analyzer.Dir = filepath.Dir(cli.ConfigPath)

	logger.Info("loading packages", "packages", cfg.PackagePaths())

	graph, err := analyzer.LoadPackages(cfg.PackagePaths()...)
	if err != nil {
		return err
	}

	diags := config.Validate(cfg, graph)
	diags.Merge(selectedDiagnostics(cfg, graph, analyzer.Diagnostics()))
	logDiagnostics(logger, diags)

	if diags.HasErrors() {
		return fmt.Errorf("entity declarations have errors: %w", diags.Error())
	}

	logKeyPaths(logger, cfg, graph)

	generator := gen.NewGenerator(graph, gen.GeneratorConfig{DebugUnformatted: cli.DebugUnformatted})

	files, err := generator.Generate(cfg)
	if err != nil {
		return err
	}

	if cli.Check {
		return checkFiles(logger, files)
	}

	if err := gen.WriteFiles(files); err != nil {
		return err
	}

	for _, f := range files {
		logger.Info("wrote descriptor tables", "file", filepath.Join(f.Dir, f.Filename))
	}

	return nil
}

// selectedDiagnostics keeps the analyzer findings about configured types only.
func selectedDiagnostics(cfg *config.File, graph *analyze.TypeGraph, all *diagnostic.Diagnostics) diagnostic.Diagnostics {
	var out diagnostic.Diagnostics

	for i := range cfg.Packages {
		p := &cfg.Packages[i]

		pkg := graph.Packages[p.Path]
		if pkg == nil {
			continue
		}

		for _, id := range pkg.Types {
			if p.Selects(id.Name) {
				out.Merge(all.ForType(pkg.Name + "." + id.Name))
			}
		}
	}

	return out
}

func logDiagnostics(logger *slog.Logger, diags *diagnostic.Diagnostics) {
	for _, d := range diags.All() {
		attrs := []any{"code", d.Code, "type", d.Type, "key", d.Key}

		switch d.Severity {
		case diagnostic.DiagnosticError:
			logger.Error(d.Message, attrs...)
		case diagnostic.DiagnosticWarning:
			logger.Warn(d.Message, attrs...)
		default:
			logger.Debug(d.Message, attrs...)
		}
	}
}

func logKeyPaths(logger *slog.Logger, cfg *config.File, graph *analyze.TypeGraph) {
	for i := range cfg.Packages {
		p := &cfg.Packages[i]

		for _, id := range graph.Packages[p.Path].Types {
			if p.Selects(id.Name) {
				logger.Debug("entity", "type", id.String(), "keys", graph.KeyPaths(id, keyPathDepth))
			}
		}
	}
}

func checkFiles(logger *slog.Logger, files []gen.GeneratedFile) error {
	stale := 0

	for _, f := range files {
		path := filepath.Join(f.Dir, f.Filename)

		current, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		if !bytes.Equal(current, f.Content) {
			logger.Error("generated file is out of date", "file", path)
			stale++
		}
	}

	if stale > 0 {
		return fmt.Errorf("%w: %d file(s)", errStale, stale)
	}

	logger.Info("generated files are up to date", "files", len(files))

	return nil
}
