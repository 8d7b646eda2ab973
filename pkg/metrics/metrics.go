package metrics

import (
	"runtime"
	"strconv"
	"time"
)

// Removal reasons for CacheRemovalsTotal.
const (
	RemovalUnlink  = "unlink"
	RemovalReset   = "reset"
	RemovalDestroy = "destroy"
)

// RecordJobEnqueued counts a submitted recompute job
func (r *Registry) RecordJobEnqueued() {
	r.JobsEnqueuedTotal.Inc()
	r.JobsInFlight.Inc()
}

// RecordJobFinished records how a recompute job ended. points is ignored
// unless the job produced geometry.
func (r *Registry) RecordJobFinished(outcome string, duration time.Duration, points int) {
	r.JobsInFlight.Dec()
	r.JobsFinishedTotal.WithLabelValues(outcome).Inc()
	r.JobDuration.Observe(duration.Seconds())
	if points > 0 {
		r.PointsPerLink.Observe(float64(points))
	}
}

// RecordCacheRemoval counts n entries dropped for reason
func (r *Registry) RecordCacheRemoval(reason string, n int) {
	if n <= 0 {
		return
	}
	r.CacheRemovalsTotal.WithLabelValues(reason).Add(float64(n))
}

// SetCacheEntries updates the cache size gauge
func (r *Registry) SetCacheEntries(n int) {
	r.CacheEntries.Set(float64(n))
}

// RecordEvent counts an accepted network event
func (r *Registry) RecordEvent(kind string) {
	r.EventsReceivedTotal.WithLabelValues(kind).Inc()
}

// RecordEventRejected counts an event that could not be decoded or applied
func (r *Registry) RecordEventRejected(reason string) {
	r.EventsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(path string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes uptime, goroutine and heap gauges
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}
