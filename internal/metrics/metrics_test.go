package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/RMahshie/ftmwcat/internal/categorize"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BatchStarted()
	m.ObserveScan(categorize.Step{Action: categorize.ActionRescan}, 10)
	m.ObserveScan(categorize.Step{Action: categorize.ActionFinal}, 10)
	m.ObserveOutcome(categorize.CategorySaturated)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.running))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("rescan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("final")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.shots))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.categories.WithLabelValues("SAT")))

	m.BatchFinished("completed")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("completed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BatchStarted()
		m.ObserveScan(categorize.Step{}, 1)
		m.ObserveOutcome("ND")
		m.BatchFinished("failed")
	})
}
