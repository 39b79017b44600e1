package processing

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/example/analysis-worker/internal/plugin"
	"github.com/example/analysis-worker/internal/version"
)

// AnalysisInfo describes the analysis run itself.
type AnalysisInfo struct {
	path string
	now  func() time.Time
}

// NewAnalysisInfo builds the module with the wall clock.
func NewAnalysisInfo() *AnalysisInfo {
	return &AnalysisInfo{now: time.Now}
}

// Key implements plugin.Processing.
func (a *AnalysisInfo) Key() string { return "info" }

// SetPath implements plugin.PathSetter.
func (a *AnalysisInfo) SetPath(p string) { a.path = p }

// Run implements plugin.Processing.
func (a *AnalysisInfo) Run(ctx context.Context) (any, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return nil, plugin.WrapProcessingError(err, "stat analysis folder")
	}

	return map[string]any{
		"id":            filepath.Base(a.path),
		"analysis_path": a.path,
		"version":       version.Version,
		"modified_at":   info.ModTime().UTC().Format(time.RFC3339),
		"processed_at":  a.now().UTC().Format(time.RFC3339),
	}, nil
}
