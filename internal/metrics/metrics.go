// Package metrics holds the Prometheus instruments recorded by the analysis
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "analysis_worker"

// Metrics records plugin outcomes and durations. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	pluginRuns       *prometheus.CounterVec
	pluginDuration   *prometheus.HistogramVec
	signatureMatches prometheus.Counter
	stageDuration    *prometheus.HistogramVec
}

// New creates the pipeline metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pluginRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_runs_total",
			Help:      "Plugin invocations by family, plugin and outcome.",
		}, []string{"family", "plugin", "outcome"}),
		pluginDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_duration_seconds",
			Help:      "Plugin execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family"}),
		signatureMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_matches_total",
			Help:      "Signatures that matched.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{m.pluginRuns, m.pluginDuration, m.signatureMatches, m.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObservePlugin records one plugin invocation.
func (m *Metrics) ObservePlugin(family, plugin, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pluginRuns.WithLabelValues(family, plugin, outcome).Inc()
	m.pluginDuration.WithLabelValues(family).Observe(elapsed.Seconds())
}

// ObserveMatch counts a matched signature.
func (m *Metrics) ObserveMatch() {
	if m == nil {
		return
	}
	m.signatureMatches.Inc()
}

// ObserveStage records the duration of a whole stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// PluginRuns exposes the outcome counter for inspection. It returns nil on a
// nil *Metrics.
func (m *Metrics) PluginRuns() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.pluginRuns
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
