package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEventMetrics() {
	r.EventsReceivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cables_events_received_total",
			Help: "Total number of network events received, by kind",
		},
		[]string{"kind"},
	)

	r.EventsRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cables_events_rejected_total",
			Help: "Total number of network events rejected, by reason",
		},
		[]string{"reason"},
	)
}
