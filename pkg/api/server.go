// Package api serves the daemon's HTTP surface: health, Prometheus metrics
// and an SVG snapshot of the mirrored network.
package api

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/health"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/metrics"
	"github.com/dd0wney/cluso-cables/pkg/pubsub"
	"github.com/dd0wney/cluso-cables/pkg/render"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Feed reports progress of the event feed mirroring the network.
// *events.Subscriber implements it.
type Feed = health.Feed

// Options holds a Server's collaborators. Network, Cache and Metrics are
// required.
type Options struct {
	Addr      string
	Network   *topology.Network
	Cache     *geocache.Cache
	Collector *render.Collector
	Metrics   *metrics.Registry
	Notices   *pubsub.PubSub
	Feed      Feed
	// Health receives the standard checks. Callers may register more on
	// it before or after NewServer.
	Health *health.HealthChecker
	Logger logging.Logger
}

// Server is the daemon's HTTP server.
type Server struct {
	opts      Options
	log       logging.Logger
	startTime time.Time
	http      *http.Server

	updated atomic.Uint64
	removed atomic.Uint64
	cleared atomic.Uint64
}

// NewServer creates a server. It does not start listening.
func NewServer(opts Options) (*Server, error) {
	if opts.Network == nil || opts.Cache == nil || opts.Metrics == nil {
		return nil, errors.New("api: network, cache and metrics are required")
	}
	if opts.Collector == nil {
		opts.Collector = render.NewCollector(opts.Cache, opts.Network, nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Health == nil {
		opts.Health = health.NewHealthChecker()
	}
	registerChecks(opts)

	s := &Server{
		opts:      opts,
		log:       opts.Logger.With(logging.Component("api")),
		startTime: time.Now(),
	}
	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.opts.Health.ReadinessHandler())
	mux.HandleFunc("/livez", s.opts.Health.LivenessHandler())
	mux.Handle("/metrics", s.opts.Metrics.Handler())
	mux.HandleFunc("/snapshot.svg", s.handleSnapshot)

	return s.panicRecoveryMiddleware(s.metricsMiddleware(mux))
}

// Start counts geometry notices and serves HTTP until ctx is done, then
// shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.watchNotices(ctx); err != nil {
		return err
	}
	go s.updateMetricsPeriodically(ctx)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logging.Addr(s.opts.Addr))
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func registerChecks(opts Options) {
	hc := opts.Health
	hc.RegisterCheck("cache", health.CacheCheck(opts.Cache.Size, func() int {
		return len(opts.Network.Links())
	}))
	if opts.Notices != nil {
		hc.RegisterCheck("notices", health.NoticeCheck(opts.Notices.Dropped))
	}
	if opts.Feed != nil {
		hc.RegisterCheck("feed", health.FeedCheck(opts.Feed))
		hc.RegisterReadinessCheck("feed", health.FeedReadyCheck(opts.Feed))
	}
}

func (s *Server) watchNotices(ctx context.Context) error {
	if s.opts.Notices == nil {
		return nil
	}
	counters := map[pubsub.Topic]*atomic.Uint64{
		pubsub.TopicUpdated: &s.updated,
		pubsub.TopicRemoved: &s.removed,
		pubsub.TopicCleared: &s.cleared,
	}
	for topic, counter := range counters {
		sub, err := s.opts.Notices.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go func() {
			for range sub.Channel() {
				counter.Add(1)
			}
		}()
	}
	return nil
}

// updateMetricsPeriodically refreshes runtime and cache gauges every 10 seconds.
func (s *Server) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.opts.Metrics.UpdateSystemMetrics()
			s.opts.Metrics.SetCacheEntries(s.opts.Cache.Size())
			s.log.Debug("system metrics updated",
				logging.Int("goroutines", runtime.NumGoroutine()))
		}
	}
}
