package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/example/analysis-worker/internal/config"
)

func TestEnsureOutputDir(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*testing.T) string
		wantError bool
	}{
		{
			name:      "empty path returns error",
			setup:     func(*testing.T) string { return "" },
			wantError: true,
		},
		{
			name: "nested directory creation",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "level1", "level2")
			},
		},
		{
			name: "directory already exists",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			err := ensureOutputDir(path)
			if tt.wantError {
				if err == nil {
					t.Fatalf("ensureOutputDir(%q) expected error", path)
				}
				return
			}
			if err != nil {
				t.Fatalf("ensureOutputDir(%q) unexpected error = %v", path, err)
			}
			if info, err := os.Stat(path); err != nil || !info.IsDir() {
				t.Fatalf("directory not created: %v", err)
			}
		})
	}
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := writeJSONFile(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("writeJSONFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["a"] != 1 {
		t.Fatalf("unexpected content %s", data)
	}
}

func TestBuildRegistryMissingSignaturesDir(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()
	cfg.SignaturesDir = filepath.Join(t.TempDir(), "missing")

	reg, res, err := buildRegistry(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	if len(res.Loaded) != 0 {
		t.Fatalf("expected no signatures, got %v", res.Loaded)
	}
	if got := len(reg.Processing()); got != 3 {
		t.Fatalf("expected 3 processing modules, got %d", got)
	}
}

func TestBuildRegistryDisabled(t *testing.T) {
	dir := writeSignatures(t)
	cfg := config.DefaultRuntimeConfig()
	cfg.SignaturesDir = dir
	cfg.Disabled = []string{"static", "known_bad_hash"}

	reg, _, err := buildRegistry(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	for _, e := range reg.Processing() {
		if e.Name == "static" {
			t.Fatalf("static should be disabled")
		}
	}
	for _, e := range reg.Signatures() {
		if e.Name == "known_bad_hash" {
			t.Fatalf("known_bad_hash should be disabled")
		}
	}
}

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

// writeSignatures creates a rules directory with one matching, one alerting
// and one namespaced rule.
func writeSignatures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rules := `name: known_bad_hash
severity: 3
alert: true
conditions:
  - path: static.file.sha256
    equals: ` + helloSHA256 + `
---
name: has_dropped_files
severity: 1
conditions:
  - path: dropped
    minCount: 1
`
	if err := os.WriteFile(filepath.Join(dir, "rules.yml"), []byte(rules), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "windows"), 0o755); err != nil {
		t.Fatalf("mkdir namespace: %v", err)
	}
	return dir
}

// writeAnalysis creates an analysis folder holding a sample.
func writeAnalysis(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "1")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir analysis: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "binary"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return dir
}
