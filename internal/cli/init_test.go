package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/analysis-worker/internal/config"
)

func TestInitCommandSuccessfulValidation(t *testing.T) {
	analysis := writeAnalysis(t)

	cmd := newInitCmd(&config.Loader{ConfigPath: ""})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--analysis", analysis})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Environment looks good") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, err := os.Stat(filepath.Join(analysis, "reports")); err != nil {
		t.Fatalf("report directory not created: %v", err)
	}
}

func TestInitCommandConfigurationError_InvalidWorkers(t *testing.T) {
	cmd := newInitCmd(&config.Loader{ConfigPath: ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--analysis", writeAnalysis(t), "--workers", "0"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "workers must be between") {
		t.Fatalf("expected workers error, got %v", err)
	}
}

func TestInitCommandAnalysisNotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cmd := newInitCmd(&config.Loader{ConfigPath: ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--analysis", file})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for non-directory analysis path")
	}
}

func TestInitCommandRequireSignatures(t *testing.T) {
	cmd := newInitCmd(&config.Loader{ConfigPath: ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--analysis", writeAnalysis(t),
		"--signatures-dir", filepath.Join(t.TempDir(), "missing"),
		"--require-signatures",
	})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "signatures directory") {
		t.Fatalf("expected signatures error, got %v", err)
	}
}

func TestInitCommandWithConfigFile(t *testing.T) {
	analysis := writeAnalysis(t)
	configPath := filepath.Join(t.TempDir(), "worker.config.yml")
	content := "analysisPath: " + analysis + "\nworkers: 4\npluginTimeout: 30s\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newInitCmd(&config.Loader{ConfigPath: configPath})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if !strings.Contains(buf.String(), filepath.Join(analysis, "reports", "report.json")) {
		t.Fatalf("expected report path in output, got %s", buf.String())
	}
}
