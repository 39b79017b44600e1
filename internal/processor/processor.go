// Package processor runs the two analysis stages: processing plugins extract
// facts from a completed analysis run, then signature plugins evaluate rules
// against those facts. The signature stage never starts before every
// processing plugin has finished.
package processor

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/example/analysis-worker/internal/plugin"
)

// ErrInputPath is returned when the analysis input path is unusable.
var ErrInputPath = errors.New("invalid analysis path")

// Processor drives both stages for one analysis input.
type Processor struct {
	registry *plugin.Registry
	opts     []Option
	settings
}

// New creates a Processor over the plugins registered in reg.
func New(reg *plugin.Registry, opts ...Option) *Processor {
	if reg == nil {
		reg = plugin.NewRegistry()
	}
	return &Processor{registry: reg, opts: opts, settings: newSettings(opts)}
}

// Run executes the processing stage, then the signature stage, and returns
// the finalized report. Plugin failures never fail Run; only an unusable
// input path or a cancelled ctx do.
func (p *Processor) Run(ctx context.Context, inputPath string) (Report, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, errors.Wrapf(ErrInputPath, "%s: %v", inputPath, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrInputPath, "%s is not a directory", inputPath)
	}

	start := time.Now()
	results := NewProcessingRunner(p.registry.Processing(), p.opts...).RunAll(ctx, inputPath)
	p.metrics.ObserveStage(string(plugin.FamilyProcessing), time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	matches := NewSignatureRunner(p.registry.Signatures(), p.opts...).RunAll(ctx, results)
	p.metrics.ObserveStage(string(plugin.FamilySignature), time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, m := range matches {
		p.logger.Debug("analysis matched signature",
			zap.String("analysis_path", inputPath),
			zap.String("signature", m.Name))
	}

	return Finalize(results, matches), nil
}
