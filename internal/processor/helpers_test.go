package processor

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/analysis-worker/internal/plugin"
)

type funcProcessing struct {
	key string
	run func(ctx context.Context) (any, error)
}

func (f *funcProcessing) Key() string { return f.key }

func (f *funcProcessing) Run(ctx context.Context) (any, error) { return f.run(ctx) }

type configurableProcessing struct {
	funcProcessing
	source     string
	configured plugin.Options
	path       string
}

func (c *configurableProcessing) ConfigSource() string { return c.source }

func (c *configurableProcessing) Configure(opts plugin.Options) error {
	c.configured = opts
	return nil
}

func (c *configurableProcessing) SetPath(p string) { c.path = p }

type funcSignature struct {
	plugin.BaseSignature
	calls *atomic.Int32
	run   func(ctx context.Context, results plugin.Results) (bool, error)
}

func (f *funcSignature) Run(ctx context.Context, results plugin.Results) (bool, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	return f.run(ctx, results)
}

func returns(v any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) { return v, nil }
}

func fails(err error) func(context.Context) (any, error) {
	return func(context.Context) (any, error) { return nil, err }
}

func processingEntry(name, key string, run func(context.Context) (any, error)) plugin.ProcessingEntry {
	return plugin.ProcessingEntry{Name: name, New: func() plugin.Processing {
		return &funcProcessing{key: key, run: run}
	}}
}

func signatureEntry(name string, severity int, enabled bool, calls *atomic.Int32, run func(context.Context, plugin.Results) (bool, error)) plugin.SignatureEntry {
	return plugin.SignatureEntry{Name: name, New: func() plugin.Signature {
		return &funcSignature{
			BaseSignature: plugin.BaseSignature{SignatureMeta: plugin.SignatureMeta{
				Name:        name,
				Description: name + " description",
				Severity:    severity,
				Enabled:     enabled,
			}},
			calls: calls,
			run:   run,
		}
	}}
}

func matching(context.Context, plugin.Results) (bool, error) { return true, nil }

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return zap.New(core), logs
}

type staticLoader struct {
	opts    map[string]plugin.Options
	err     error
	sources []string
}

func (l *staticLoader) Load(source string) (plugin.Options, error) {
	l.sources = append(l.sources, source)
	if l.err != nil {
		return nil, l.err
	}
	return l.opts[source], nil
}
