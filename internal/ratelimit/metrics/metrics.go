package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions        *prometheus.CounterVec
	BackendFallbacks *prometheus.CounterVec
	BreakerOpen      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lumine_ratelimit_decisions_total",
			Help: "Rate limit decisions by action, outcome and backend",
		}, []string{"action", "outcome", "backend"}),
		BackendFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lumine_ratelimit_backend_fallbacks_total",
			Help: "Checks served by the local store because the shared backend was unavailable",
		}, []string{"reason"}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lumine_ratelimit_breaker_open",
			Help: "1 while the shared backend breaker is open",
		}),
	}
}

func (m *Metrics) ObserveDecision(action string, allowed bool, backend string) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.Decisions.WithLabelValues(action, outcome, backend).Inc()
}

func (m *Metrics) IncFallback(reason string) {
	if m == nil {
		return
	}
	m.BackendFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
