package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/analysis-worker/internal/config"
	"github.com/example/analysis-worker/internal/events"
)

func TestProcessCommandWritesReport(t *testing.T) {
	analysis := writeAnalysis(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics", "worker.prom")

	cmd := newProcessCmd(&config.Loader{ConfigPath: ""})
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{
		analysis,
		"--signatures-dir", writeSignatures(t),
		"--conf-dir", t.TempDir(),
		"--workers", "4",
		"--metrics-file", metricsFile,
		"--log-format", "json",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("process command failed: %v\n%s", err, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(analysis, "reports", "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var report struct {
		Info       map[string]any   `json:"info"`
		Static     map[string]any   `json:"static"`
		Dropped    []any            `json:"dropped"`
		Signatures []map[string]any `json:"signatures"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if report.Info["id"] != "1" {
		t.Fatalf("unexpected info section: %v", report.Info)
	}
	if report.Static == nil {
		t.Fatalf("static section missing: %s", data)
	}
	if len(report.Signatures) != 1 || report.Signatures[0]["name"] != "known_bad_hash" {
		t.Fatalf("expected known_bad_hash match, got %v", report.Signatures)
	}

	var types []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		var evt events.Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("stdout line is not an event: %q", scanner.Text())
		}
		if evt.RunID == "" {
			t.Fatalf("event without run id: %q", scanner.Text())
		}
		types = append(types, evt.Type)
	}
	want := []string{events.TypeRunStart, events.TypeStageFinished, events.TypeReportWritten, events.TypeRunFinished}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", types, want)
	}

	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !bytes.Contains(prom, []byte("analysis_worker_plugin_runs_total")) {
		t.Fatalf("metrics file missing plugin counter:\n%s", prom)
	}
}

func TestProcessCommandCustomReportFile(t *testing.T) {
	analysis := writeAnalysis(t)
	reportFile := filepath.Join(t.TempDir(), "out", "report.json")

	cmd := newProcessCmd(&config.Loader{ConfigPath: ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--analysis", analysis,
		"--signatures-dir", filepath.Join(t.TempDir(), "none"),
		"--report-file", reportFile,
		"--disabled", "static",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("process command failed: %v", err)
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if _, ok := report["static"]; ok {
		t.Fatalf("disabled module should not report: %s", data)
	}
	if sigs, ok := report["signatures"].([]any); !ok || len(sigs) != 0 {
		t.Fatalf("signatures should be an empty list, got %v", report["signatures"])
	}
}

func TestProcessCommandRejectsMissingAnalysis(t *testing.T) {
	cmd := newProcessCmd(&config.Loader{ConfigPath: ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing")})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing analysis folder")
	}
}

func TestProcessCommandRequiresAnalysis(t *testing.T) {
	t.Setenv("WORKER_ANALYSIS_PATH", "")

	cmd := newProcessCmd(&config.Loader{ConfigPath: ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no analysis path") {
		t.Fatalf("expected missing analysis error, got %v", err)
	}
}
