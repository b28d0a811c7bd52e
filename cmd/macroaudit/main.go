// =============================================================================
// macroaudit - Main Entry Point
// =============================================================================
//
// This tool characterizes every preprocessor macro invocation in a C
// translation unit, so that macros can be judged for rewriting as typed
// functions, constants, or inline procedures.
//
// THE PIPELINE:
//   1. The preprocessor host lexes and expands the translation unit,
//      reporting definition, inspection, inclusion and expansion events
//   2. The expansion forest records every invocation with its arguments
//   3. Tree-sitter parses the preprocessed stream into a syntax tree
//   4. The semantic layer resolves symbols and types
//   5. The aligner matches expansions and arguments to syntax subtrees
//   6. The evaluator emits one property record per top-level invocation
//   7. lint mode: CUE validates the records, OPA evaluates policy rules
//
// WHEN INVESTIGATING A WRONG FLAG:
//   Start at the beginning of the pipeline, not the end!
//   Expansion issues → Alignment issues → Evaluation issues
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/macroaudit/macroaudit/internal/analysis"
	"github.com/macroaudit/macroaudit/internal/config"
	"github.com/macroaudit/macroaudit/internal/policy"
	"github.com/macroaudit/macroaudit/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "init":
		runInit()
	case "lint":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runLint(os.Args[2])
	case "-v", "--verbose":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runAnalyze(os.Args[2], true)
	case "-h", "--help", "help":
		printUsage()
	case "-c", "--config":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		runAnalyzeWithConfig(os.Args[2], os.Args[3])
	default:
		runAnalyze(cmd, false)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: macroaudit [command] [options] <file.c>

Commands:
  init              Create a macroaudit.json configuration file
  lint <file.c>     Analyze, then evaluate policy rules over the records
  <file.c>          Analyze a translation unit and print records

Options:
  -v, --verbose     Enable verbose output
  -c, --config      Specify config file: macroaudit -c config.json <file.c>
  -h, --help        Show this help message

Configuration:
  macroaudit looks for configuration in:
    1. macroaudit.json in the directory of <file.c>
    2. .macroaudit.json in the directory of <file.c>
    3. ~/.config/macroaudit/config.json

  Run 'macroaudit init' to create a default configuration file.`)
}

func runInit() {
	configPath := "macroaudit.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Include directories")
	fmt.Println("  - Predefined macros")
	fmt.Println("  - Policy rule severities")
}

// targets expands a path argument: a file is analyzed as-is, a directory
// through the configured file patterns.
func targets(cfg *config.Config, path string) []string {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return []string{path}
	}
	files, err := cfg.ResolveFiles(path)
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no C files found under %s\n", path)
		os.Exit(1)
	}
	return files
}

func runAnalyze(path string, verbose bool) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	a := analysis.NewWithConfig(cfg)
	a.Verbose = verbose
	for _, file := range targets(cfg, path) {
		res, err := a.AnalyzeFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(res.Output)
	}
}

func runAnalyzeWithConfig(configPath, path string) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", configPath, err)
		os.Exit(1)
	}

	a := analysis.NewWithConfig(cfg)
	for _, file := range targets(cfg, path) {
		res, err := a.AnalyzeFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(res.Output)
	}
}

func runLint(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	a := analysis.NewWithConfig(cfg)
	var records []*analysis.Record
	for _, file := range targets(cfg, path) {
		res, err := a.AnalyzeFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		records = append(records, res.Records...)
	}

	v, err := validator.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading schema: %v\n", err)
		os.Exit(1)
	}
	report := map[string]interface{}{"records": recordsOrEmpty(records)}
	if err := v.ValidateReport(report); err != nil {
		fmt.Fprintf(os.Stderr, "Record contract violated: %v\n", err)
		os.Exit(1)
	}

	engine, err := policy.New(cfg.Lint.PolicyDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading policies: %v\n", err)
		os.Exit(1)
	}
	result, err := engine.Evaluate(policy.Input{Records: records, Rules: cfg.Lint.Rules})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error evaluating policies: %v\n", err)
		os.Exit(1)
	}

	for _, viol := range result.Violations {
		fmt.Printf("%s:%d [%s] %s: %s\n", viol.File, viol.Line, viol.Severity, viol.Rule, viol.Message)
	}
	fmt.Printf("%d violations (%d errors, %d warnings, %d info)\n",
		result.Summary.TotalViolations, result.Summary.Errors,
		result.Summary.Warnings, result.Summary.Info)

	if result.Summary.Errors > 0 {
		os.Exit(1)
	}
}

func recordsOrEmpty(records []*analysis.Record) interface{} {
	if len(records) == 0 {
		return []interface{}{}
	}
	return records
}
