package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. It satisfies the
// gate.MetricsRecorder interface so authentication outcomes feed directly
// into the counters.
type Metrics struct {
	registry *prometheus.Registry

	authOutcomes *prometheus.CounterVec
	tokensIssued *prometheus.CounterVec
	evictions    prometheus.Counter
}

// NewMetrics builds a self-contained registry. sessionCount is sampled on
// every scrape; pass the registry's Size method.
func NewMetrics(sessionCount func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		authOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kioskd",
			Name:      "auth_outcomes_total",
			Help:      "Authentication attempts by principal kind and outcome.",
		}, []string{"kind", "outcome"}),
		tokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kioskd",
			Name:      "tokens_issued_total",
			Help:      "Access tokens issued by principal kind.",
		}, []string{"kind"}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kioskd",
			Name:      "session_evictions_total",
			Help:      "Realtime sessions evicted because a newer token superseded them.",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "kioskd",
		Name:      "realtime_sessions",
		Help:      "Live realtime sessions.",
	}, func() float64 { return float64(sessionCount()) })

	return m
}

// AuthOutcome records one authentication attempt.
func (m *Metrics) AuthOutcome(kind, outcome string) {
	m.authOutcomes.WithLabelValues(kind, outcome).Inc()
}

// TokenIssued records one token issuance.
func (m *Metrics) TokenIssued(kind string) {
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// Eviction records one session eviction.
func (m *Metrics) Eviction() {
	m.evictions.Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
