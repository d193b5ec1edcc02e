package cache

import "github.com/prometheus/client_golang/prometheus"

var snapshotHits = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_cache_snapshot_hits_total",
		Help: "Snapshot cache hits, by snapshot kind.",
	},
	[]string{"kind"},
)

func init() {
	prometheus.MustRegister(snapshotHits)
}

func incHit(kind string) {
	snapshotHits.WithLabelValues(kind).Inc()
}
