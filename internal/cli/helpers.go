package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/example/analysis-worker/internal/config"
	"github.com/example/analysis-worker/internal/modules/processing"
	"github.com/example/analysis-worker/internal/modules/signatures"
	"github.com/example/analysis-worker/internal/plugin"
	"github.com/example/analysis-worker/internal/version"
)

func ensureOutputDir(path string) error {
	if path == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return os.MkdirAll(path, 0o755)
}

// buildRegistry registers the built-in processing modules and the YAML
// signatures found in cfg.SignaturesDir, then drops cfg.Disabled. A missing
// signatures directory only produces a warning.
func buildRegistry(cfg config.RuntimeConfig, logger *zap.Logger) (*plugin.Registry, signatures.LoadResult, error) {
	reg := plugin.NewRegistry()
	if err := processing.Register(reg); err != nil {
		return nil, signatures.LoadResult{}, err
	}

	res, err := signatures.LoadDir(reg, cfg.SignaturesDir, version.Version)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("signatures directory not found, running without signatures",
			zap.String("dir", cfg.SignaturesDir))
	case err != nil:
		return nil, res, errors.Wrap(err, "load signatures")
	}

	for _, s := range res.Skipped {
		logger.Warn("skipped signature rule",
			zap.String("file", s.File),
			zap.String("rule", s.Rule),
			zap.String("reason", s.Reason))
	}

	if len(cfg.Disabled) > 0 {
		reg = reg.Without(cfg.Disabled)
	}
	return reg, res, nil
}

func writeJSONFile(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	if err := ensureOutputDir(filepath.Dir(path)); err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func dirOfReport(cfg config.RuntimeConfig) string {
	return filepath.Dir(cfg.ReportPath())
}
