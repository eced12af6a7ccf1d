package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = counterVec(
		"festql_http_requests_total",
		"Total number of HTTP requests.",
		"method", "path", "status",
	)
	httpRequestDurationSeconds = histogramVec(
		"festql_http_request_duration_seconds",
		"HTTP request latency by route.",
		prometheus.DefBuckets,
		"method", "path",
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds)
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

func histogram(name, help string, buckets []float64) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets})
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
}
