package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Published *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lumine_mirror_events_total",
			Help: "Mirror events by stage and delivery result",
		}, []string{"stage", "result"}),
	}
}

func (m *Metrics) incResult(stage, result string) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(stage, result).Inc()
}
