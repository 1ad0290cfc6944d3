package server

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pthm-cable/flock/boids"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/sim"
)

func testServer(t *testing.T) (*Server, *sim.Engine, *sim.Runner) {
	t.Helper()

	cfg := &config.Config{}
	cfg.World = config.WorldConfig{Width: 200, Height: 200}
	cfg.Sim = config.SimConfig{
		Capacity:          64,
		InitialPopulation: 10,
		TickRate:          100,
		Workers:           1,
		Seed:              7,
	}
	cfg.Flocking = config.FlockingConfig{
		MaxVelocity:       1.5,
		MinVelocity:       0.5,
		RangeOfView:       3.0,
		AlignmentStrength: 0.15,
		RepulsionFactor:   0.03,
		RandomFactor:      0.25,
		SlowFactor:        1.0,
		ConfusionFactor:   0.20,
		DistanceFactor:    0.05,
		DefaultSize:       7.0,
		BoundaryMode:      "wrap",
	}
	cfg.Server = config.ServerConfig{Addr: ":0", BroadcastEvery: 1}
	cfg.Telemetry = config.TelemetryConfig{StatsWindow: 5.0, PerfCollectorWindow: 16}
	cfg.Derived.TickInterval = 10 * time.Millisecond
	cfg.Derived.DT = 0.01

	eng, err := sim.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(eng.Close)

	hub := NewHub()
	runner := sim.NewRunner(eng, cfg, nil, hub.Broadcast)
	return New(eng, runner, hub), eng, runner
}

func TestApplyCommand_SchemaRejections(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `boids go brr`},
		{name: "missing cmd", raw: `{"count": 3}`},
		{name: "unknown cmd", raw: `{"cmd": "fly"}`},
		{name: "set_param without value", raw: `{"cmd": "set_param", "name": "max_velocity"}`},
		{name: "set_param unknown name", raw: `{"cmd": "set_param", "name": "turbo", "value": 1}`},
		{name: "set_param string for numeric", raw: `{"cmd": "set_param", "name": "max_velocity", "value": "fast"}`},
		{name: "boundary mode unknown value", raw: `{"cmd": "set_param", "name": "boundary_mode", "value": "diagonal"}`},
		{name: "boundary mode numeric value", raw: `{"cmd": "set_param", "name": "boundary_mode", "value": 1}`},
		{name: "set_count without count", raw: `{"cmd": "set_count"}`},
		{name: "set_count string count", raw: `{"cmd": "set_count", "count": "many"}`},
		{name: "set_count fractional count", raw: `{"cmd": "set_count", "count": 10.5}`},
		{name: "add_agents without count", raw: `{"cmd": "add_agents"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := srv.applyCommand([]byte(tc.raw)); err == nil {
				t.Errorf("applyCommand(%s) accepted, want rejection", tc.raw)
			}
		})
	}
}

func TestApplyCommand_SetParam(t *testing.T) {
	srv, eng, _ := testServer(t)

	raw := `{"cmd": "set_param", "name": "alignment_strength", "value": 0.3}`
	if _, err := srv.applyCommand([]byte(raw)); err != nil {
		t.Fatalf("applyCommand: %v", err)
	}
	if v, _ := eng.GetParameter("alignment_strength"); v != 0.3 {
		t.Errorf("alignment_strength = %v, want 0.3", v)
	}
}

func TestApplyCommand_SetBoundaryMode(t *testing.T) {
	srv, eng, _ := testServer(t)

	raw := `{"cmd": "set_param", "name": "boundary_mode", "value": "bounce"}`
	if _, err := srv.applyCommand([]byte(raw)); err != nil {
		t.Fatalf("applyCommand: %v", err)
	}
	if got := eng.Params().Boundary; got != boids.BoundaryBounce {
		t.Errorf("Boundary = %v, want bounce", got)
	}
}

func TestApplyCommand_EngineRejectsOutOfRange(t *testing.T) {
	srv, eng, _ := testServer(t)

	// Schema-valid but semantically impossible: min above max.
	raw := `{"cmd": "set_param", "name": "min_velocity", "value": 99}`
	_, err := srv.applyCommand([]byte(raw))
	if !errors.Is(err, boids.ErrInvalidValue) {
		t.Fatalf("applyCommand = %v, want ErrInvalidValue", err)
	}
	if v, _ := eng.GetParameter("min_velocity"); v != 0.5 {
		t.Errorf("min_velocity = %v after rejected write, want 0.5", v)
	}
}

func TestApplyCommand_AddAgentsAckReportsClamp(t *testing.T) {
	srv, eng, _ := testServer(t)

	// Capacity 64 with 10 live agents: a request for 100 clamps to 54.
	raw, err := srv.applyCommand([]byte(`{"cmd": "add_agents", "count": 100}`))
	if err != nil {
		t.Fatalf("add_agents: %v", err)
	}
	var ack ackMessage
	if err := json.Unmarshal(raw, &ack); err != nil {
		t.Fatalf("decoding ack: %v", err)
	}
	if ack.Added == nil || *ack.Added != 54 {
		t.Errorf("ack.Added = %v, want 54", ack.Added)
	}
	if ack.Population != 64 || eng.Population() != 64 {
		t.Errorf("population = %d/%d, want 64", ack.Population, eng.Population())
	}
}

func TestApplyCommand_PopulationAndLifecycle(t *testing.T) {
	srv, eng, runner := testServer(t)

	if _, err := srv.applyCommand([]byte(`{"cmd": "set_count", "count": 20}`)); err != nil {
		t.Fatalf("set_count: %v", err)
	}
	if got := eng.Population(); got != 20 {
		t.Errorf("Population = %d, want 20", got)
	}

	// Negative counts clamp to an empty world rather than failing.
	if _, err := srv.applyCommand([]byte(`{"cmd": "set_count", "count": -3}`)); err != nil {
		t.Fatalf("set_count negative: %v", err)
	}
	if got := eng.Population(); got != 0 {
		t.Errorf("Population = %d, want 0", got)
	}

	if _, err := srv.applyCommand([]byte(`{"cmd": "add_agents", "count": 5}`)); err != nil {
		t.Fatalf("add_agents: %v", err)
	}
	if got := eng.Population(); got != 5 {
		t.Errorf("Population = %d, want 5", got)
	}

	if _, err := srv.applyCommand([]byte(`{"cmd": "pause"}`)); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !runner.Paused() {
		t.Error("runner not paused after pause command")
	}

	if _, err := srv.applyCommand([]byte(`{"cmd": "resume"}`)); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if runner.Paused() {
		t.Error("runner still paused after resume command")
	}

	if _, err := srv.applyCommand([]byte(`{"cmd": "reset"}`)); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := eng.Population(); got != 5 {
		t.Errorf("Population = %d after reset, want 5", got)
	}
}
