package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for the ingestion pipeline.
type Metrics struct {
	FetchRequests    *prometheus.CounterVec // labels: source
	FetchFailures    *prometheus.CounterVec // labels: source
	EventsNormalized prometheus.Counter
	Searches         *prometheus.CounterVec // labels: status
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchFailures,
		m.EventsNormalized,
		m.Searches,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citywatch",
			Name:      "fetch_requests_total",
			Help:      "Adapter fetch attempts by source.",
		}, []string{"source"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citywatch",
			Name:      "fetch_failures_total",
			Help:      "Adapter fetches that returned no usable data, by source.",
		}, []string{"source"}),
		EventsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citywatch",
			Name:      "events_normalized_total",
			Help:      "Raw posts normalized into canonical events.",
		}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citywatch",
			Name:      "searches_total",
			Help:      "Completed search runs by terminal status.",
		}, []string{"status"}),
	}
}
