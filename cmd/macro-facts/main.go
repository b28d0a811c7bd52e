// macro-facts emits the invocation records of a translation unit as JSON,
// the exact shape the policy engine receives as input.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/macroaudit/macroaudit/internal/analysis"
	"github.com/macroaudit/macroaudit/internal/config"
)

func main() {
	output := flag.String("output", "", "write records JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write records JSON to file (shorthand)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: macro-facts [--output file] <file.c>")
		os.Exit(1)
	}

	path := args[0]
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	a := analysis.NewWithConfig(cfg)
	res, err := a.AnalyzeFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	records := res.Records
	if records == nil {
		records = []*analysis.Record{}
	}
	data, err := json.MarshalIndent(map[string]interface{}{"records": records}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding records: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
}
