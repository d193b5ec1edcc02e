package pagination

import "github.com/prometheus/client_golang/prometheus"

var pageFetches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_pagination_fetches_total",
		Help: "Page fetches issued by the pagination controller.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(pageFetches)
}

func incFetch(outcome string) {
	pageFetches.WithLabelValues(outcome).Inc()
}
