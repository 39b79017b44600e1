package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/example/analysis-worker/internal/config"
)

func TestPluginsCommandListsBothFamilies(t *testing.T) {
	cmd := newPluginsCmd(&config.Loader{ConfigPath: ""})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--signatures-dir", writeSignatures(t)})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("plugins command failed: %v", err)
	}

	for _, want := range []string{"analysisinfo", "static", "dropped", "known_bad_hash", "has_dropped_files", "windows"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("listing missing %q:\n%s", want, out.String())
		}
	}
}
