package web

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the server's prometheus collectors, registered on a
// per-server registry so tests can run servers side by side.
type metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	runs     prometheus.Counter
	runFails prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freedom",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freedom",
			Name:      "runs_total",
			Help:      "Successfully processed report runs.",
		}),
		runFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freedom",
			Name:      "run_failures_total",
			Help:      "Report runs that failed to process.",
		}),
	}
	m.registry.MustRegister(m.requests, m.runs, m.runFails)
	return m
}
