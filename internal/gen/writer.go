package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// unformattedSuffix replaces ".go" in the name of a file that failed gofmt.
const unformattedSuffix = ".unformatted.go"

// WriteFiles writes all generated files next to the packages they belong to.
// It creates missing directories.
func WriteFiles(files []GeneratedFile) error {
	for _, file := range files {
		if err := writeFile(file); err != nil {
			return err
		}
	}

	return nil
}

func writeFile(file GeneratedFile) error {
	if err := os.MkdirAll(file.Dir, dirPerm); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	outputPath := filepath.Join(file.Dir, file.Filename)

	if err := os.WriteFile(outputPath, file.Content, filePerm); err != nil {
		return fmt.Errorf("writing file %s: %w", outputPath, err)
	}

	return nil
}

// unformattedFile names the sidecar holding raw template output that did not
// parse, so it can be inspected without replacing the real output.
func unformattedFile(file GeneratedFile) GeneratedFile {
	file.Filename = strings.TrimSuffix(file.Filename, ".go") + unformattedSuffix
	return file
}
