package processor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/example/analysis-worker/internal/metrics"
	"github.com/example/analysis-worker/internal/plugin"
)

// Option configures the stage runners and the Processor.
type Option func(*settings)

type settings struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	loader  plugin.ConfigLoader
	workers int
	timeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:  zap.NewNop(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// WithLogger sets the logger used for plugin warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics records plugin outcomes into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithConfigLoader sets the loader used for Configurable plugins. Without
// one, Configurable plugins receive empty options.
func WithConfigLoader(l plugin.ConfigLoader) Option {
	return func(s *settings) { s.loader = l }
}

// WithWorkers bounds how many plugins of a stage run at once. One, the
// default, runs plugins sequentially in discovery order.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithPluginTimeout bounds every plugin invocation. Zero disables the limit.
func WithPluginTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// guard runs fn in its own goroutine, converting panics into errors and
// enforcing the per-plugin timeout. When the timeout fires the plugin's
// context is cancelled and its eventual result is discarded.
func guard[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out.err = errors.Newf("plugin panicked: %v", r)
			}
			done <- out
		}()
		out.value, out.err = fn(ctx)
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errors.Wrapf(plugin.ErrPluginTimeout, "after %s", timeout)
		}
		return zero, ctx.Err()
	}
}

// record logs and counts the outcome of one plugin invocation.
func (s settings) record(family plugin.Family, name string, err error, elapsed time.Duration) plugin.FaultKind {
	kind := plugin.Classify(err)
	s.metrics.ObservePlugin(string(family), name, kind.String(), elapsed)

	fields := []zap.Field{
		zap.String("family", string(family)),
		zap.String("plugin", name),
	}

	switch kind {
	case plugin.FaultNone:
		s.logger.Debug("executed plugin", append(fields, zap.Duration("elapsed", elapsed))...)
	case plugin.FaultAbsent:
		s.logger.Debug("plugin has nothing to contribute", fields...)
	case plugin.FaultDomain:
		var pe *plugin.ProcessingError
		errors.As(err, &pe)
		s.logger.Warn("plugin returned an error", append(fields, zap.String("detail", pe.Detail), zap.Error(err))...)
	default:
		s.logger.Warn("failed to run plugin", append(fields, zap.Error(err))...)
	}
	return kind
}
