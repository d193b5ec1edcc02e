package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	notificationsShown = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_notifications_shown_total",
			Help: "Notifications raised, by category.",
		},
		[]string{"category"},
	)
	notificationsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_notifications_suppressed_total",
			Help: "Notifications suppressed, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(notificationsShown, notificationsSuppressed)
}

func incShown(category string) {
	notificationsShown.WithLabelValues(category).Inc()
}

func incSuppressed(reason string) {
	notificationsSuppressed.WithLabelValues(reason).Inc()
}
