package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_api_requests_total",
			Help: "REST requests issued against the platform API.",
		},
		[]string{"method", "outcome"},
	)
	apiRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "console_api_request_duration_seconds",
			Help:    "REST request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(apiRequests, apiRequestDuration)
}

func observeRequest(method, path string, started time.Time, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	apiRequests.WithLabelValues(method, outcome).Inc()
	apiRequestDuration.Observe(time.Since(started).Seconds())
}
