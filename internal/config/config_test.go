package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.IncludeDirs) == 0 {
		t.Fatalf("default config should search the current directory")
	}
	if cfg.Lint.Rules == nil {
		t.Fatalf("rules map should be initialized")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macroaudit.json")

	cfg := DefaultConfig()
	cfg.IncludeDirs = []string{"include", "third_party"}
	cfg.Defines = []string{"DEBUG", "VERSION=2"}
	cfg.Lint.Rules = map[string]string{"unhygienic-macro": "warning"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.IncludeDirs) != 2 || loaded.IncludeDirs[1] != "third_party" {
		t.Fatalf("include dirs %v", loaded.IncludeDirs)
	}
	if len(loaded.Defines) != 2 || loaded.Defines[1] != "VERSION=2" {
		t.Fatalf("defines %v", loaded.Defines)
	}
	if loaded.Lint.Rules["unhygienic-macro"] != "warning" {
		t.Fatalf("rules %v", loaded.Lint.Rules)
	}
}

func TestLoadFindsConfigNextToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Defines = []string{"MARKER"}
	if err := cfg.Save(filepath.Join(dir, "macroaudit.json")); err != nil {
		t.Fatalf("save: %v", err)
	}
	src := filepath.Join(dir, "main.c")
	if err := os.WriteFile(src, []byte("int x;\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Defines) != 1 || loaded.Defines[0] != "MARKER" {
		t.Fatalf("config next to source not found: %v", loaded.Defines)
	}
}

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, f := range []string{"a.c", "b.h", filepath.Join("sub", "c.c")} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("int x;\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	cfg := DefaultConfig()
	files, err := cfg.ResolveFiles(dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected a.c and sub/c.c, got %v", files)
	}
	for _, f := range files {
		if filepath.Ext(f) != ".c" {
			t.Fatalf("non-C file resolved: %s", f)
		}
	}
}
