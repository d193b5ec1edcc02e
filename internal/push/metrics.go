package push

import "github.com/prometheus/client_golang/prometheus"

var (
	pushConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_push_connected",
			Help: "Whether the push channel is currently open (1) or not (0).",
		},
	)
	pushEventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_push_events_received_total",
			Help: "Inbound push events, by kind.",
		},
		[]string{"kind"},
	)
	pushSubscriptionCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_push_subscription_commands_total",
			Help: "Subscribe/unsubscribe control frames sent.",
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(pushConnected, pushEventsReceived, pushSubscriptionCommands)
}

func setConnected(connected bool) {
	if connected {
		pushConnected.Set(1)
	} else {
		pushConnected.Set(0)
	}
}

func incEventReceived(kind string) {
	pushEventsReceived.WithLabelValues(kind).Inc()
}

func incSubscriptionCommand(command string) {
	pushSubscriptionCommands.WithLabelValues(command).Inc()
}
