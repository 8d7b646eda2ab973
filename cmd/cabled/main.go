// cabled mirrors a remote cable network from a cable-sim event feed, keeps
// its geometry cache warm and serves metrics, health and an SVG snapshot.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-cables/pkg/api"
	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/events"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/health"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/metrics"
	"github.com/dd0wney/cluso-cables/pkg/pubsub"
	"github.com/dd0wney/cluso-cables/pkg/render"
	"github.com/dd0wney/cluso-cables/pkg/scheduler"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// feedStaleAfter is how long the feed may stay silent before /healthz
// reports it degraded.
const feedStaleAfter = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults if empty)")
	httpAddr := flag.String("http", "", "HTTP listen address (overrides config)")
	eventsAddr := flag.String("events", "", "Event feed address to dial (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *eventsAddr != "" {
		cfg.Server.EventsAddr = *eventsAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level))
	logging.SetDefaultLogger(logger)

	log.Printf("🚀 cabled starting...")
	log.Printf("📡 Event feed: %s", cfg.Server.EventsAddr)
	log.Printf("⚙️  Executor: %s (%d workers)", cfg.Scheduler.Executor, cfg.Scheduler.Workers)

	store, err := config.NewStore(cfg.Cables)
	if err != nil {
		log.Fatalf("Invalid cable options: %v", err)
	}
	reg := metrics.DefaultRegistry()
	notices := pubsub.NewPubSub()
	defer notices.Shutdown()

	exec, err := scheduler.NewExecutor(cfg.Scheduler, logger)
	if err != nil {
		log.Fatalf("Failed to create executor: %v", err)
	}

	cache := geocache.New()
	sched, err := scheduler.New(cache, scheduler.Options{
		Executor: exec,
		Config:   store,
		Logger:   logger,
		Metrics:  reg,
		Notices:  notices,
	})
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	defer sched.Close()

	net := topology.NewNetwork()
	net.Observe(sched)
	store.OnChange(func(opts config.CableOptions) {
		n := net.Refresh()
		logger.Info("cable options changed",
			logging.Float64("max_link_distance", opts.MaxLinkDistance),
			logging.Float64("segments_per_unit_distance", opts.SegmentsPerUnitDistance),
			logging.Float64("cable_thickness", opts.CableThickness),
			logging.Count(n))
	})

	sub, err := events.NewSubscriber(events.NewMangosFactory(), events.SubscriberConfig{
		Addr:        cfg.Server.EventsAddr,
		RecvTimeout: cfg.Server.RecvTimeout,
	}, events.NetworkApplier{Net: net}, logger, reg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}

	checks := health.NewHealthChecker()
	checks.RegisterLivenessCheck("scheduler", health.SchedulerCheck(sched.Closed))
	checks.RegisterCheck("feed_activity", health.StaleCheck("feed_activity", sub.LastApplied, feedStaleAfter))

	server, err := api.NewServer(api.Options{
		Addr:      cfg.Server.HTTPAddr,
		Network:   net,
		Cache:     cache,
		Collector: render.NewCollector(cache, net, store),
		Metrics:   reg,
		Notices:   notices,
		Feed:      sub,
		Health:    checks,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *configPath != "" {
		go reloadOnHangup(ctx, *configPath, store, logger)
	}

	go func() {
		if err := sub.Run(ctx); err != nil {
			logger.Error("event feed stopped", logging.Error(err))
			stop()
		}
	}()

	log.Printf("✅ Server listening on %s", cfg.Server.HTTPAddr)
	log.Printf("📊 Health:   http://localhost%s/healthz", cfg.Server.HTTPAddr)
	log.Printf("📈 Metrics:  http://localhost%s/metrics", cfg.Server.HTTPAddr)
	log.Printf("🖼️  Snapshot: http://localhost%s/snapshot.svg", cfg.Server.HTTPAddr)

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("👋 cabled stopped (%d events applied, %d lost)", sub.Applied(), sub.Lost())
}

// reloadOnHangup re-reads the cable options from path on SIGHUP. Options that
// fail validation are logged and the running ones kept.
func reloadOnHangup(ctx context.Context, path string, store *config.Store, logger logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		log.Printf("Received SIGHUP signal, reloading %s...", path)
		cfg, err := config.Load(path)
		if err != nil {
			logger.Error("config reload failed", logging.Error(err))
			continue
		}
		if _, err := store.Update(func(o *config.CableOptions) { *o = cfg.Cables }); err != nil {
			logger.Error("config reload rejected", logging.Error(err))
		}
	}
}
