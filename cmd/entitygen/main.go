// Package main provides the CLI entrypoint for entitygen.
//
// entitygen loads the packages listed in an entitygen.yaml file, checks their
// entity declarations and writes a descriptor table for every selected type
// next to it, so the mapper skips reflection when it first meets the type.
//
// Usage:
//
//	entitygen -config entitygen.yaml [-check] [-v]
package main

import (
	"fmt"
	"os"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogger(cfg.Verbose, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("entitygen failed", "error", err)
		os.Exit(1)
	}
}
