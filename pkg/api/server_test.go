package api

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cables/pkg/curve"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/health"
	"github.com/dd0wney/cluso-cables/pkg/metrics"
	"github.com/dd0wney/cluso-cables/pkg/pubsub"
	"github.com/dd0wney/cluso-cables/pkg/scheduler"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

type fakeFeed struct{ applied, lost uint64 }

func (f fakeFeed) Applied() uint64 { return f.applied }
func (f fakeFeed) Lost() uint64    { return f.lost }

// setupTestServer wires two linked poles through an inline scheduler.
func setupTestServer(t *testing.T) (*Server, *pubsub.PubSub) {
	t.Helper()

	cache := geocache.New()
	notices := pubsub.NewPubSub()
	t.Cleanup(notices.Shutdown)

	sched, err := scheduler.New(cache, scheduler.Options{Executor: scheduler.Inline{}})
	require.NoError(t, err)

	net := topology.NewNetwork()
	net.Observe(sched)
	a := topology.NewPole(topology.NewNodeID(), curve.V(0, 0))
	b := topology.NewPole(topology.NewNodeID(), curve.V(10, 0))
	require.NoError(t, net.Add(a))
	require.NoError(t, net.Add(b))
	_, err = net.Link(a.ID(), b.ID())
	require.NoError(t, err)

	s, err := NewServer(Options{
		Addr:    "127.0.0.1:0",
		Network: net,
		Cache:   cache,
		Metrics: metrics.NewRegistry(),
		Notices: notices,
		Feed:    fakeFeed{applied: 7, lost: 1},
	})
	require.NoError(t, err)
	return s, notices
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := get(s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, health.StatusDegraded, resp.Status, "one lost event degrades the feed")
	assert.Contains(t, resp.Checks, "cache")
	assert.Contains(t, resp.Checks, "notices")
	assert.Equal(t, health.StatusDegraded, resp.Checks["feed"].Status)
	assert.Equal(t, 2, resp.Nodes)
	assert.Equal(t, 1, resp.Links)
	assert.Equal(t, 1, resp.CacheEntries)
	require.NotNil(t, resp.Feed)
	assert.Equal(t, uint64(7), resp.Feed.Applied)
	assert.Equal(t, uint64(1), resp.Feed.Lost)
}

func TestReadinessAndLiveness(t *testing.T) {
	s, _ := setupTestServer(t)
	s.opts.Health.RegisterLivenessCheck("scheduler", health.SchedulerCheck(func() bool { return true }))

	assert.Equal(t, http.StatusOK, get(s, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(s, "/livez").Code)
}

func TestHealthRejectsPost(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSnapshot(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := get(s, "/snapshot.svg?w=300&h=120")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))

	var doc struct {
		XMLName xml.Name
		Width   string     `xml:"width,attr"`
		Lines   []struct{} `xml:"g>line"`
		Circles []struct{} `xml:"circle"`
	}
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "300", doc.Width)
	assert.Len(t, doc.Lines, 9)
	assert.Len(t, doc.Circles, 2)
}

func TestSnapshotBadSize(t *testing.T) {
	s, _ := setupTestServer(t)

	for _, q := range []string{"w=0", "w=abc", "h=99999"} {
		rec := get(s, "/snapshot.svg?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	}
}

func TestMetricsEndpointAndMiddleware(t *testing.T) {
	s, _ := setupTestServer(t)

	require.Equal(t, http.StatusOK, get(s, "/healthz").Code)
	rec := get(s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cables_http_requests_total")

	m := &dto.Metric{}
	require.NoError(t, s.opts.Metrics.HTTPRequestsTotal.WithLabelValues("/healthz", "200").Write(m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}

func TestPanicRecovery(t *testing.T) {
	s, _ := setupTestServer(t)
	h := s.panicRecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestNoticeCounts(t *testing.T) {
	s, notices := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.watchNotices(ctx))
	notices.Publish(pubsub.Notice{Topic: pubsub.TopicUpdated})
	notices.Publish(pubsub.Notice{Topic: pubsub.TopicUpdated})
	notices.Publish(pubsub.Notice{Topic: pubsub.TopicCleared})

	assert.Eventually(t, func() bool {
		return s.updated.Load() == 2 && s.cleared.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, s.removed.Load())
}

func TestStartStopsOnCancel(t *testing.T) {
	s, _ := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
