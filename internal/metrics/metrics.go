package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/RMahshie/ftmwcat/internal/categorize"
)

// Metrics holds the Prometheus collectors for batch processing. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	scans      *prometheus.CounterVec // scans by resulting action
	shots      prometheus.Counter
	categories *prometheus.CounterVec // finalized entries by category
	batches    *prometheus.CounterVec // finished batches by status
	running    prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftmwcat_scans_total",
				Help: "Completed scans by resulting categorization action",
			},
			[]string{"action"},
		),
		shots: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ftmwcat_shots_total",
				Help: "Shots consumed by completed scans",
			},
		),
		categories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftmwcat_entries_categorized_total",
				Help: "Finalized worklist entries by category",
			},
			[]string{"category"},
		),
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftmwcat_batches_total",
				Help: "Batches that stopped processing, by final status",
			},
			[]string{"status"},
		),
		running: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ftmwcat_batches_running",
				Help: "Batches currently being processed",
			},
		),
	}
}

// ObserveScan records one completed scan
func (m *Metrics) ObserveScan(step categorize.Step, shots int) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(step.Action.String()).Inc()
	m.shots.Add(float64(shots))
}

// ObserveOutcome records a finalized entry. Composed labels are counted
// under their own value, so label cardinality follows the test list.
func (m *Metrics) ObserveOutcome(category string) {
	if m == nil {
		return
	}
	m.categories.WithLabelValues(category).Inc()
}

// BatchStarted marks a batch as running
func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.running.Inc()
}

// BatchFinished records the final status of a batch
func (m *Metrics) BatchFinished(status string) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.batches.WithLabelValues(status).Inc()
}
