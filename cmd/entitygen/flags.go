package main

import (
	"flag"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath       string
	LogFormat        string
	Verbose          bool
	Check            bool
	DebugUnformatted bool
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	fs := flag.NewFlagSet("entitygen", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", "entitygen.yaml", "Path to the generator config file")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text, json")
	fs.BoolVar(&cfg.Verbose, "v", false, "Log debug details, including every key path")
	fs.BoolVar(&cfg.Check, "check", false, "Fail if generated files are missing or out of date instead of writing them")
	fs.BoolVar(&cfg.DebugUnformatted, "debug-unformatted", false,
		"Keep generated code that fails to format as <output>.unformatted.go")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}
