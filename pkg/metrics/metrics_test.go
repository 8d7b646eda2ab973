package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.JobsEnqueuedTotal == nil {
		t.Error("JobsEnqueuedTotal not initialized")
	}
	if r.CacheEntries == nil {
		t.Error("CacheEntries not initialized")
	}
	if r.EventsReceivedTotal == nil {
		t.Error("EventsReceivedTotal not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordJobLifecycle(t *testing.T) {
	r := NewRegistry()

	r.RecordJobEnqueued()
	r.RecordJobEnqueued()
	r.RecordJobFinished("applied", time.Millisecond, 42)

	if got := counterValue(t, r.JobsEnqueuedTotal); got != 2 {
		t.Errorf("enqueued = %v, want 2", got)
	}
	if got := gaugeValue(t, r.JobsInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	if got := counterValue(t, r.JobsFinishedTotal.WithLabelValues("applied")); got != 1 {
		t.Errorf("finished{applied} = %v, want 1", got)
	}

	var m dto.Metric
	if err := r.PointsPerLink.(prometheus.Metric).Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.GetHistogram().GetSampleCount() != 1 || m.GetHistogram().GetSampleSum() != 42 {
		t.Errorf("points histogram = %v", m.GetHistogram())
	}
}

func TestRecordJobFinished_NoPoints(t *testing.T) {
	r := NewRegistry()
	r.RecordJobEnqueued()
	r.RecordJobFinished("stale", 0, 0)

	var m dto.Metric
	if err := r.PointsPerLink.(prometheus.Metric).Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.GetHistogram().GetSampleCount() != 0 {
		t.Errorf("expected no points observation, got %d", m.GetHistogram().GetSampleCount())
	}
}

func TestRecordCacheRemoval(t *testing.T) {
	r := NewRegistry()
	r.RecordCacheRemoval(RemovalReset, 3)
	r.RecordCacheRemoval(RemovalReset, 0)
	r.RecordCacheRemoval(RemovalUnlink, 1)

	if got := counterValue(t, r.CacheRemovalsTotal.WithLabelValues(RemovalReset)); got != 3 {
		t.Errorf("removals{reset} = %v, want 3", got)
	}
	if got := counterValue(t, r.CacheRemovalsTotal.WithLabelValues(RemovalUnlink)); got != 1 {
		t.Errorf("removals{unlink} = %v, want 1", got)
	}

	r.SetCacheEntries(9)
	if got := gaugeValue(t, r.CacheEntries); got != 9 {
		t.Errorf("entries = %v, want 9", got)
	}
}

func TestRecordEvents(t *testing.T) {
	r := NewRegistry()
	r.RecordEvent("link")
	r.RecordEvent("link")
	r.RecordEventRejected("decode")

	if got := counterValue(t, r.EventsReceivedTotal.WithLabelValues("link")); got != 2 {
		t.Errorf("events{link} = %v, want 2", got)
	}
	if got := counterValue(t, r.EventsRejectedTotal.WithLabelValues("decode")); got != 1 {
		t.Errorf("rejected{decode} = %v, want 1", got)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics()

	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("goroutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.UptimeSeconds); got < 0 {
		t.Errorf("uptime = %v, want >= 0", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordJobEnqueued()
	r.RecordHTTPRequest("/metrics", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"cables_jobs_enqueued_total",
		"cables_http_requests_total",
		"cables_uptime_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}
