// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Sim       SimConfig       `yaml:"sim"`
	Flocking  FlockingConfig  `yaml:"flocking"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions.
// The world is a rectangle centered on the origin; agents live in
// [-width/2, width/2] x [-height/2, height/2].
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SimConfig holds engine-level parameters.
type SimConfig struct {
	Capacity          int   `yaml:"capacity"`           // Fixed agent buffer size; population can never exceed this
	InitialPopulation int   `yaml:"initial_population"` // Agents added at startup
	TickRate          int   `yaml:"tick_rate"`          // Simulation ticks per second
	Workers           int   `yaml:"workers"`            // Kernel worker goroutines (0 = GOMAXPROCS)
	Seed              int64 `yaml:"seed"`               // RNG seed (0 = time-based)
}

// FlockingConfig holds the tunable flocking parameter set.
// Every field is also mutable at runtime through the control plane.
type FlockingConfig struct {
	MaxVelocity       float64 `yaml:"max_velocity"`       // Speed ceiling per tick
	MinVelocity       float64 `yaml:"min_velocity"`       // Isolated agents decay toward this
	RangeOfView       float64 `yaml:"range_of_view"`      // Neighbor visibility radius
	AlignmentStrength float64 `yaml:"alignment_strength"` // Alignment/cohesion steering gain
	RepulsionFactor   float64 `yaml:"repulsion_factor"`   // Separation impulse scale
	RandomFactor      float64 `yaml:"random_factor"`      // Per-axis uniform velocity jitter
	SlowFactor        float64 `yaml:"slow_factor"`        // Speed shed per tick when isolated
	ConfusionFactor   float64 `yaml:"confusion_factor"`   // Steering damping per neighbor
	DistanceFactor    float64 `yaml:"distance_factor"`    // Cohesion falloff with centroid distance
	DefaultSize       float64 `yaml:"default_size"`       // Collision radius for new agents
	BoundaryMode      string  `yaml:"boundary_mode"`      // "wrap" or "bounce"
}

// ServerConfig holds network settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`            // Listen address, e.g. ":8080"
	BroadcastEvery int    `yaml:"broadcast_every"` // Broadcast a frame every N ticks
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds per flock-stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks in the perf rolling window
	OutputDir           string  `yaml:"output_dir"`            // CSV output directory ("" = disabled)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldMinX    float64       // Lower x bound (-width/2)
	WorldMaxX    float64       // Upper x bound (+width/2)
	WorldMinY    float64       // Lower y bound (-height/2)
	WorldMaxY    float64       // Upper y bound (+height/2)
	TickInterval time.Duration // Wall-clock period of one tick
	DT           float64       // Seconds per tick
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.WorldMinX = -c.World.Width / 2
	c.Derived.WorldMaxX = c.World.Width / 2
	c.Derived.WorldMinY = -c.World.Height / 2
	c.Derived.WorldMaxY = c.World.Height / 2

	rate := c.Sim.TickRate
	if rate < 1 {
		rate = 1
	}
	c.Derived.TickInterval = time.Second / time.Duration(rate)
	c.Derived.DT = 1.0 / float64(rate)

	if c.Server.BroadcastEvery < 1 {
		c.Server.BroadcastEvery = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
