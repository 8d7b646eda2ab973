// Package config holds the tunables for cable geometry, the recompute
// scheduler and the binaries, loaded from YAML over built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CableOptions are the externally supplied geometry tunables. Each
// recompute job carries its own copy, so a change never affects work that
// is already in flight.
type CableOptions struct {
	MaxLinkDistance         float64 `yaml:"max_link_distance" validate:"gt=0"`
	SegmentsPerUnitDistance float64 `yaml:"segments_per_unit_distance" validate:"gt=0,lte=100"`
	CableThickness          float64 `yaml:"cable_thickness" validate:"gt=0"`
}

// Executor names.
const (
	ExecutorGo     = "go"
	ExecutorPool   = "pool"
	ExecutorInline = "inline"
)

// SchedulerConfig selects how recompute jobs are run.
type SchedulerConfig struct {
	Executor  string `yaml:"executor" validate:"oneof=go pool inline"`
	Workers   int    `yaml:"workers" validate:"gte=0,lte=1024"`
	QueueSize int    `yaml:"queue_size" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ServerConfig is used by cabled and cable-sim.
type ServerConfig struct {
	HTTPAddr    string        `yaml:"http_addr" validate:"required"`
	EventsAddr  string        `yaml:"events_addr" validate:"required"`
	RecvTimeout time.Duration `yaml:"recv_timeout" validate:"gt=0"`
}

// SimConfig drives the demo world.
type SimConfig struct {
	Seed      int64         `yaml:"seed"`
	Poles     int           `yaml:"poles" validate:"gte=0,lte=500"`
	Walls     int           `yaml:"walls" validate:"gte=0,lte=500"`
	Width     float64       `yaml:"width" validate:"gt=0"`
	Height    float64       `yaml:"height" validate:"gt=0"`
	Tick      time.Duration `yaml:"tick" validate:"gt=0"`
	ChurnRate float64       `yaml:"churn_rate" validate:"gte=0,lte=1"`
}

// Config is the root configuration document.
type Config struct {
	Cables    CableOptions    `yaml:"cables"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Sim       SimConfig       `yaml:"sim"`
}

// DefaultCableOptions returns the stock geometry tunables.
func DefaultCableOptions() CableOptions {
	return CableOptions{
		MaxLinkDistance:         20,
		SegmentsPerUnitDistance: 1.0,
		CableThickness:          0.15,
	}
}

// Default returns a valid configuration.
func Default() Config {
	return Config{
		Cables: DefaultCableOptions(),
		Scheduler: SchedulerConfig{
			Executor:  ExecutorGo,
			Workers:   4,
			QueueSize: 256,
		},
		Logging: LoggingConfig{Level: "info"},
		Server: ServerConfig{
			HTTPAddr:    ":9310",
			EventsAddr:  "tcp://127.0.0.1:9311",
			RecvTimeout: 500 * time.Millisecond,
		},
		Sim: SimConfig{
			Seed:      1,
			Poles:     12,
			Walls:     4,
			Width:     80,
			Height:    40,
			Tick:      100 * time.Millisecond,
			ChurnRate: 0.3,
		},
	}
}

// Parse decodes YAML from r over Default and validates the result. Unknown
// keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the YAML file at path. An empty path yields Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
