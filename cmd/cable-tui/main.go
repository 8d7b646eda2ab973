// cable-tui runs the demo simulation locally and draws the cables in the
// terminal as their geometry arrives from the background scheduler.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/pubsub"
	"github.com/dd0wney/cluso-cables/pkg/scheduler"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults if empty)")
	seed := flag.Int64("seed", 0, "Simulation seed (overrides config when non-zero)")
	logPath := flag.String("log", "", "Write JSON logs to this file (discarded if empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}

	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewJSONLogger(logOut, logging.ParseLevel(cfg.Logging.Level))

	exec, err := scheduler.NewExecutor(cfg.Scheduler, logger)
	if err != nil {
		log.Fatalf("Failed to create executor: %v", err)
	}

	notices := pubsub.NewPubSub()
	defer notices.Shutdown()
	sub, err := notices.Subscribe(context.Background(), pubsub.TopicUpdated)
	if err != nil {
		log.Fatalf("Failed to subscribe to geometry updates: %v", err)
	}

	a, err := newApp(cfg, exec, notices, logger)
	if err != nil {
		log.Fatalf("Failed to start simulation: %v", err)
	}
	defer a.sched.Close()

	p := tea.NewProgram(initialModel(a, cfg.Sim.Tick, sub.Channel()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
