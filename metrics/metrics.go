// Package metrics holds the prometheus collectors shared by the gateway and the
// HTTP layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "encuestas"

var Registry = prometheus.NewRegistry()

var (
	procedureCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "procedure_calls_total",
		Help:      "Stored procedure calls by procedure and outcome.",
	}, []string{"procedure", "outcome"})

	procedureDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "procedure_duration_seconds",
		Help:      "Stored procedure call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	responsesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "responses_stored_total",
		Help:      "Response rows committed.",
	})
)

func init() {
	Registry.MustRegister(
		procedureCalls,
		procedureDuration,
		httpRequests,
		responsesStored,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// ObserveCall records one procedure invocation. outcome is "ok" or an error kind.
func ObserveCall(procedure, outcome string, elapsed time.Duration) {
	procedureCalls.WithLabelValues(procedure, outcome).Inc()
	procedureDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

func ObserveRequest(route, method, code string) {
	httpRequests.WithLabelValues(route, method, code).Inc()
}

func AddResponses(n int) {
	responsesStored.Add(float64(n))
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
