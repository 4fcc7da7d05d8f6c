package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for dataset sync.
type Metrics struct {
	// Mutation outcomes by action and result code ("ok" on success)
	MutationOutcome *prometheus.CounterVec

	// Latency of mutations including the transaction
	MutationLatency *prometheus.HistogramVec

	// Current dataset cardinality by collection
	DatasetSize *prometheus.GaugeVec

	Revision prometheus.Gauge
}

// New creates a new Metrics instance with all dataset metrics registered.
func New() *Metrics {
	return &Metrics{
		MutationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lumine_dataset_mutations_total",
			Help: "Total dataset mutations by action and outcome code",
		}, []string{"action", "outcome"}),

		MutationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lumine_dataset_mutation_duration_seconds",
			Help:    "Duration of dataset mutations by action",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"action"}),

		DatasetSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lumine_dataset_size",
			Help: "Rows per dataset collection after the last overwrite",
		}, []string{"collection"}),

		Revision: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lumine_dataset_revision",
			Help: "Last revision produced by this instance",
		}),
	}
}

// ObserveMutation records the outcome and duration of a mutation.
func (m *Metrics) ObserveMutation(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.MutationOutcome.WithLabelValues(action, outcome).Inc()
	m.MutationLatency.WithLabelValues(action).Observe(d.Seconds())
}

// SetDatasetSize records collection sizes after a full overwrite.
func (m *Metrics) SetDatasetSize(individuals, records int) {
	if m == nil {
		return
	}
	m.DatasetSize.WithLabelValues("individuals").Set(float64(individuals))
	m.DatasetSize.WithLabelValues("records").Set(float64(records))
}

// SetRevision records the latest revision.
func (m *Metrics) SetRevision(rev int64) {
	if m == nil {
		return
	}
	m.Revision.Set(float64(rev))
}
