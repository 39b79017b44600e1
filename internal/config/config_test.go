package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderLoadWithFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "worker.config.yml")
	configBody := []byte("analysisPath: /storage/analyses/7\nworkers: 4\nconfDir: " + dir + "\npluginTimeout: 90s\ndisabled:\n  - static\n")
	if err := os.WriteFile(configPath, configBody, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(envWorkers, "8")
	t.Setenv(envLogFormat, "JSON")

	loader := Loader{ConfigPath: configPath}
	cfg, err := loader.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}

	if cfg.AnalysisPath != "/storage/analyses/7" {
		t.Fatalf("unexpected analysis path %s", cfg.AnalysisPath)
	}

	if cfg.Workers != 8 {
		t.Fatalf("env override should set workers to 8, got %d", cfg.Workers)
	}

	if cfg.PluginTimeout != 90*time.Second {
		t.Fatalf("expected 90s timeout, got %s", cfg.PluginTimeout)
	}

	if cfg.ConfDir != dir {
		t.Fatalf("expected conf dir %s, got %s", dir, cfg.ConfDir)
	}

	if len(cfg.Disabled) != 1 || cfg.Disabled[0] != "static" {
		t.Fatalf("unexpected disabled list: %#v", cfg.Disabled)
	}

	if cfg.LogFormat != "json" {
		t.Fatalf("expected log format json, got %s", cfg.LogFormat)
	}
}

func TestOverridesReplaceFileValues(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "worker.config.yml")
	if err := os.WriteFile(configPath, []byte("analysisPath: /from-file\ndisabled: a, b\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := Loader{ConfigPath: configPath}
	over := Overrides{AnalysisPath: "/from-flag", Disabled: []string{"c"}}
	cfg, err := loader.Load(over)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.AnalysisPath != "/from-flag" {
		t.Fatalf("expected overrides to replace analysis path, got %s", cfg.AnalysisPath)
	}

	if len(cfg.Disabled) != 1 || cfg.Disabled[0] != "c" {
		t.Fatalf("expected overrides to replace disabled list, got %#v", cfg.Disabled)
	}
}

func TestLoaderRejectsBadTimeout(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "worker.config.yml")
	if err := os.WriteFile(configPath, []byte("pluginTimeout: soon\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := (Loader{ConfigPath: configPath}).Load(Overrides{}); err == nil {
		t.Fatalf("expected error for invalid pluginTimeout")
	}
}

func TestValidate(t *testing.T) {
	base := DefaultRuntimeConfig()
	base.AnalysisPath = "/tmp/analysis"

	tests := []struct {
		name   string
		mutate func(*RuntimeConfig)
		ok     bool
	}{
		{name: "defaults with path", mutate: func(*RuntimeConfig) {}, ok: true},
		{name: "missing path", mutate: func(c *RuntimeConfig) { c.AnalysisPath = " " }},
		{name: "zero workers", mutate: func(c *RuntimeConfig) { c.Workers = 0 }},
		{name: "too many workers", mutate: func(c *RuntimeConfig) { c.Workers = MaxWorkers + 1 }},
		{name: "negative timeout", mutate: func(c *RuntimeConfig) { c.PluginTimeout = -time.Second }},
		{name: "bad log format", mutate: func(c *RuntimeConfig) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestReportPath(t *testing.T) {
	cfg := RuntimeConfig{AnalysisPath: "/a/1"}
	if got := cfg.ReportPath(); got != filepath.Join("/a/1", "reports", "report.json") {
		t.Fatalf("unexpected default report path %s", got)
	}

	cfg.ReportFile = "/out/r.json"
	if got := cfg.ReportPath(); got != "/out/r.json" {
		t.Fatalf("unexpected report path %s", got)
	}
}

func TestParseList(t *testing.T) {
	input := "static,dropped\nanalysisinfo  behavior"
	names := ParseList(input)
	if len(names) != 4 {
		t.Fatalf("expected 4 names, got %d", len(names))
	}
}
