package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for macroaudit
type Config struct {
	// IncludeDirs lists directories searched for #include operands
	IncludeDirs []string `json:"includeDirs,omitempty"`

	// Defines lists predefined macros, each "NAME" or "NAME=VALUE",
	// processed before the main file
	Defines []string `json:"defines,omitempty"`

	// Files is an explicit list of translation units to analyze
	Files []string `json:"files,omitempty"`

	// Lint contains policy rule configuration
	Lint LintConfig `json:"lint,omitempty"`
}

// LintConfig contains policy configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// PolicyDir points at a directory of .rego policies; empty means the
	// embedded defaults
	PolicyDir string `json:"policyDir,omitempty"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		IncludeDirs: []string{"."},
		Defines:     []string{},
		Lint: LintConfig{
			Rules: map[string]string{},
		},
	}
}

// Load searches the default locations for a config file, starting from the
// directory of the path being analyzed.
func Load(path string) (*Config, error) {
	dir := path
	if st, err := os.Stat(path); err != nil || !st.IsDir() {
		dir = filepath.Dir(path)
	}

	candidates := []string{
		filepath.Join(dir, "macroaudit.json"),
		filepath.Join(dir, ".macroaudit.json"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "macroaudit", "config.json"))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return LoadFile(c)
		}
	}
	return DefaultConfig(), nil
}

// LoadFile reads a config file from an explicit path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
