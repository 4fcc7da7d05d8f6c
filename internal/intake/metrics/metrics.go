package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the intake pipeline.
type Metrics struct {
	// Stage outcomes by stage and result code ("ok" / "duplicated" on success)
	StageOutcome *prometheus.CounterVec

	StageLatency *prometheus.HistogramVec

	// Guardians found by phone and reused instead of created
	GuardiansReused prometheus.Counter
}

// New creates a new Metrics instance with all intake metrics registered.
func New() *Metrics {
	return &Metrics{
		StageOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lumine_intake_stage_total",
			Help: "Total intake stage submissions by stage and outcome",
		}, []string{"stage", "outcome"}),

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lumine_intake_stage_duration_seconds",
			Help:    "Duration of intake stage processing",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),

		GuardiansReused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lumine_intake_guardians_reused_total",
			Help: "Pre-registrations attached to an existing guardian",
		}),
	}
}

func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageOutcome.WithLabelValues(stage, outcome).Inc()
	m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) IncGuardianReused() {
	if m == nil {
		return
	}
	m.GuardiansReused.Inc()
}
