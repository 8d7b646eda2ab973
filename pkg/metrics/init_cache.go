package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCacheMetrics() {
	r.CacheEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cables_cache_entries",
			Help: "Number of cable geometry entries across all owners",
		},
	)

	r.CacheRemovalsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cables_cache_removals_total",
			Help: "Total number of cache removals, by reason",
		},
		[]string{"reason"},
	)
}
