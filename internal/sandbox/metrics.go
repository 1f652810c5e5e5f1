package sandbox

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	injected prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deta_sandbox",
			Name:      "requests_total",
			Help:      "Requests served by the sandbox, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deta_sandbox",
			Name:      "request_duration_seconds",
			Help:      "Time spent serving sandbox requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		injected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deta_sandbox",
			Name:      "injected_failures_total",
			Help:      "Requests failed on purpose by failure injection.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.injected)
	return m
}
