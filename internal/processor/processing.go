package processor

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/analysis-worker/internal/plugin"
)

// ProcessingRunner executes every processing plugin once against an
// analysis input path.
type ProcessingRunner struct {
	entries []plugin.ProcessingEntry
	settings
}

// NewProcessingRunner builds a runner over the given discovered plugins.
func NewProcessingRunner(entries []plugin.ProcessingEntry, opts ...Option) *ProcessingRunner {
	return &ProcessingRunner{entries: entries, settings: newSettings(opts)}
}

type processingSlot struct {
	key   string
	value any
	ok    bool
}

// RunAll runs the plugins and returns the results mapping. Plugins that fail
// or decline contribute no key. Plugins not yet started when ctx is
// cancelled are skipped.
func (r *ProcessingRunner) RunAll(ctx context.Context, inputPath string) plugin.Results {
	slots := make([]processingSlot, len(r.entries))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, e := range r.entries {
		if ctx.Err() != nil {
			break
		}
		i, e := i, e // per-iteration copies (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			slots[i] = r.runOne(ctx, e, inputPath)
			return nil
		})
	}
	_ = g.Wait()

	results := make(plugin.Results, len(slots))
	owners := make(map[string]string, len(slots))
	for i, slot := range slots {
		if !slot.ok {
			continue
		}
		name := r.entries[i].Name
		if owner, taken := owners[slot.key]; taken {
			r.logger.Warn("failed to run plugin",
				zap.String("family", string(plugin.FamilyProcessing)),
				zap.String("plugin", name),
				zap.Error(errors.Newf("results key %q already owned by %q", slot.key, owner)))
			continue
		}
		owners[slot.key] = name
		results[slot.key] = slot.value
	}
	return results
}

func (r *ProcessingRunner) runOne(ctx context.Context, e plugin.ProcessingEntry, inputPath string) processingSlot {
	start := time.Now()
	slot, err := guard(ctx, r.timeout, func(ctx context.Context) (processingSlot, error) {
		p := e.New()
		if p == nil {
			return processingSlot{}, errors.New("factory returned a nil plugin")
		}

		key := strings.TrimSpace(p.Key())
		switch key {
		case "":
			return processingSlot{}, errors.New("plugin declares no results key")
		case SignaturesKey:
			return processingSlot{}, errors.Newf("results key %q is reserved", key)
		}

		if c, ok := p.(plugin.Configurable); ok {
			opts, err := r.loadConfig(c.ConfigSource())
			if err != nil {
				return processingSlot{}, err
			}
			if err := c.Configure(opts); err != nil {
				return processingSlot{}, err
			}
		}

		if ps, ok := p.(plugin.PathSetter); ok {
			ps.SetPath(inputPath)
		}

		value, err := p.Run(ctx)
		if err != nil {
			return processingSlot{}, err
		}
		return processingSlot{key: key, value: value, ok: true}, nil
	})

	if r.record(plugin.FamilyProcessing, e.Name, err, time.Since(start)) != plugin.FaultNone {
		return processingSlot{}
	}
	return slot
}

func (r *ProcessingRunner) loadConfig(source string) (plugin.Options, error) {
	if r.loader == nil || strings.TrimSpace(source) == "" {
		return plugin.Options{}, nil
	}
	opts, err := r.loader.Load(source)
	if err != nil {
		return nil, errors.Wrapf(err, "load configuration %q", source)
	}
	if opts == nil {
		opts = plugin.Options{}
	}
	return opts, nil
}
