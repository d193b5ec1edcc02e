package inbox

import "github.com/prometheus/client_golang/prometheus"

var (
	optimisticRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_optimistic_registered_total",
			Help: "Optimistic messages entered into the pending ledger.",
		},
	)
	optimisticSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_optimistic_settled_total",
			Help: "Optimistic messages settled, by confirmation path.",
		},
		[]string{"path"},
	)
	optimisticFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_optimistic_failed_total",
			Help: "Optimistic messages whose send was rejected.",
		},
	)
	optimisticExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_optimistic_expired_total",
			Help: "Optimistic messages expired unconfirmed past the TTL.",
		},
	)
	optimisticRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_optimistic_retries_total",
			Help: "Manual retries of failed messages.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		optimisticRegistered,
		optimisticSettled,
		optimisticFailed,
		optimisticExpired,
		optimisticRetries,
	)
}

func incPendingRegistered() { optimisticRegistered.Inc() }
func incSettled(path string) {
	optimisticSettled.WithLabelValues(path).Inc()
}
func incFailed()  { optimisticFailed.Inc() }
func incExpired() { optimisticExpired.Inc() }
func incRetry()   { optimisticRetries.Inc() }
