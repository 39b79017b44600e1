package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePlugin(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObservePlugin("processing", "static", "ok", time.Millisecond)
	m.ObservePlugin("processing", "static", "ok", time.Millisecond)
	m.ObservePlugin("signature", "s1", "unexpected", time.Millisecond)
	m.ObserveMatch()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PluginRuns().WithLabelValues("processing", "static", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginRuns().WithLabelValues("signature", "s1", "unexpected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signatureMatches))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePlugin("processing", "x", "ok", time.Second)
		m.ObserveMatch()
		m.ObserveStage("processing", time.Second)
	})
	assert.Nil(t, m.PluginRuns())
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveStage("signature", 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "worker.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "analysis_worker_stage_duration_seconds"))
}
