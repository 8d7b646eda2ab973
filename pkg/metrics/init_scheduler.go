package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSchedulerMetrics() {
	r.JobsEnqueuedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cables_jobs_enqueued_total",
			Help: "Total number of cable recompute jobs enqueued",
		},
	)

	r.JobsFinishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cables_jobs_finished_total",
			Help: "Total number of recompute jobs finished, by outcome",
		},
		[]string{"outcome"},
	)

	r.JobDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cables_job_duration_seconds",
			Help:    "Time spent evaluating one cable curve",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	r.PointsPerLink = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cables_points_per_link",
			Help:    "Number of sample points produced per cable",
			Buckets: []float64{3, 10, 20, 40, 60, 80, 100},
		},
	)

	r.JobsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cables_jobs_in_flight",
			Help: "Number of recompute jobs submitted but not finished",
		},
	)
}
