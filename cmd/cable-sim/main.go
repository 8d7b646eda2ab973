// cable-sim runs the demo simulation and publishes its topology events so
// cabled (or any other subscriber) can mirror the network.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/events"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults if empty)")
	addr := flag.String("listen", "", "Event feed listen address (overrides config)")
	seed := flag.Int64("seed", 0, "Simulation seed (overrides config when non-zero)")
	steps := flag.Int("steps", 0, "Stop after this many steps (0 runs until interrupted)")
	warmup := flag.Duration("warmup", time.Second, "Delay before the first event so subscribers can connect")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.EventsAddr = *addr
	}
	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level))

	pub, err := events.NewPublisher(events.NewMangosFactory(), cfg.Server.EventsAddr, logger)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	if err := pub.Start(); err != nil {
		log.Fatalf("Failed to start publisher: %v", err)
	}
	defer pub.Close()

	log.Printf("🚀 cable-sim publishing on %s", cfg.Server.EventsAddr)
	log.Printf("🌱 Seed %d, %d poles, %d walls, tick %v", cfg.Sim.Seed, cfg.Sim.Poles, cfg.Sim.Walls, cfg.Sim.Tick)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		return
	case <-time.After(*warmup):
	}

	world := sim.New(cfg.Sim, cfg.Cables.MaxLinkDistance, pub)
	if err := world.Populate(); err != nil {
		log.Fatalf("Failed to populate world: %v", err)
	}
	logger.Info("world populated",
		logging.Int("nodes", world.Nodes()),
		logging.Int("links", world.Links()))

	ticker := time.NewTicker(cfg.Sim.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("👋 cable-sim stopped after %d steps, %d events sent", world.Steps(), pub.Sent())
			return
		case <-ticker.C:
		}

		if err := world.Step(); err != nil {
			logger.Error("step failed", logging.Error(err))
			continue
		}
		if world.Steps()%100 == 0 {
			logger.Info("simulation progress",
				logging.Int("steps", world.Steps()),
				logging.Int("nodes", world.Nodes()),
				logging.Int("links", world.Links()),
				logging.Uint64("sent", pub.Sent()))
		}
		if *steps > 0 && world.Steps() >= *steps {
			log.Printf("✅ Reached %d steps, %d events sent", world.Steps(), pub.Sent())
			return
		}
	}
}
