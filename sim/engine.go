// Package sim orchestrates the simulation: it owns the agent store, the
// spatial grid, the worker pool, and the single lock that serializes
// control writes against tick evaluation.
package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pthm-cable/flock/boids"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/telemetry"
)

// Frame is a point-in-time copy of agent state, safe to read after the
// engine lock is released. Buffers are reused across snapshots into the
// same Frame. Neighbors holds counts from the last flocking evaluation.
type Frame struct {
	Tick      uint64
	PosX      []float64
	PosY      []float64
	VelX      []float64
	VelY      []float64
	Size      []float64
	Neighbors []int32
}

// Count returns the number of agents captured in the frame.
func (f *Frame) Count() int {
	return len(f.PosX)
}

// Engine owns the simulation state and advances it one tick at a time.
// Every exported method takes the engine lock, so control writes from
// connection handlers land on tick boundaries.
type Engine struct {
	mu sync.Mutex

	store  *boids.Store
	grid   *boids.Grid
	params boids.Params
	pool   *pool
	perf   *telemetry.PerfCollector

	// Flocking phase outputs, sized to capacity. Written range-disjoint
	// by the pool, applied to the store after all agents are evaluated.
	newVX     []float64
	newVY     []float64
	neighbors []int32

	tick uint64
}

// NewEngine builds an engine from config and seeds the initial population.
func NewEngine(cfg *config.Config) (*Engine, error) {
	params := boids.Params{
		MaxVelocity:       cfg.Flocking.MaxVelocity,
		MinVelocity:       cfg.Flocking.MinVelocity,
		RangeOfView:       cfg.Flocking.RangeOfView,
		AlignmentStrength: cfg.Flocking.AlignmentStrength,
		RepulsionFactor:   cfg.Flocking.RepulsionFactor,
		RandomFactor:      cfg.Flocking.RandomFactor,
		SlowFactor:        cfg.Flocking.SlowFactor,
		ConfusionFactor:   cfg.Flocking.ConfusionFactor,
		DistanceFactor:    cfg.Flocking.DistanceFactor,
		DefaultSize:       cfg.Flocking.DefaultSize,
	}
	mode, err := boids.ParseBoundaryMode(cfg.Flocking.BoundaryMode)
	if err != nil {
		return nil, fmt.Errorf("flocking config: %w", err)
	}
	params.Boundary = mode
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("flocking config: %w", err)
	}

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	capacity := cfg.Sim.Capacity
	if capacity < 0 {
		capacity = 0
	}

	world := boids.NewWorld(cfg.World.Width, cfg.World.Height)
	store := boids.NewStore(world, capacity, rng)
	store.Add(cfg.Sim.InitialPopulation, params.DefaultSize)

	return &Engine{
		store:     store,
		grid:      boids.NewGrid(world, capacity, params.RangeOfView),
		params:    params,
		pool:      newPool(cfg.Sim.Workers),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		newVX:     make([]float64, capacity),
		newVY:     make([]float64, capacity),
		neighbors: make([]int32, capacity),
	}, nil
}

// Tick advances the simulation one step: rebuild the spatial hash, evaluate
// the flocking kernel for every agent against the pre-tick state, apply the
// new velocities, perturb, then integrate positions. When frame is non-nil
// the post-tick state is copied into it under the same lock, so broadcast
// frames always match a tick boundary.
func (e *Engine) Tick(frame *Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.store.Count()
	st, g, p := e.store, e.grid, e.params
	newVX, newVY, neighbors := e.newVX, e.newVY, e.neighbors

	e.perf.StartTick()

	e.perf.StartPhase(telemetry.PhaseSpatialHash)
	g.Build(st.PosX, st.PosY, n)

	e.perf.StartPhase(telemetry.PhaseFlocking)
	e.pool.run(n, func(lo, hi int) {
		boids.FlockRange(st, g, p, lo, hi, newVX, newVY, neighbors)
	})
	copy(st.VelX[:n], newVX[:n])
	copy(st.VelY[:n], newVY[:n])

	e.perf.StartPhase(telemetry.PhasePerturb)
	st.Perturb(p.RandomFactor)

	e.perf.StartPhase(telemetry.PhaseIntegrate)
	e.pool.run(n, func(lo, hi int) {
		boids.IntegrateRange(st, p.Boundary, lo, hi)
	})

	e.tick++

	if frame != nil {
		e.perf.StartPhase(telemetry.PhaseSnapshot)
		e.snapshotLocked(frame)
	}

	e.perf.EndTick()
}

// Snapshot copies the current state into f without advancing the clock.
func (e *Engine) Snapshot(f *Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshotLocked(f)
}

func (e *Engine) snapshotLocked(f *Frame) {
	n := e.store.Count()
	f.Tick = e.tick
	f.PosX = append(f.PosX[:0], e.store.PosX[:n]...)
	f.PosY = append(f.PosY[:0], e.store.PosY[:n]...)
	f.VelX = append(f.VelX[:0], e.store.VelX[:n]...)
	f.VelY = append(f.VelY[:0], e.store.VelY[:n]...)
	f.Size = append(f.Size[:0], e.store.Size[:n]...)
	f.Neighbors = append(f.Neighbors[:0], e.neighbors[:n]...)
}

// AddAgents inserts up to n agents at the configured default size and
// returns how many fit under capacity.
func (e *Engine) AddAgents(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Add(n, e.params.DefaultSize)
}

// SetPopulation grows or shrinks the active population toward target,
// clamped to [0, capacity]. Returns the resulting population.
func (e *Engine) SetPopulation(target int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetCount(target, e.params.DefaultSize)
}

// Reset re-randomizes every active agent, keeping population and parameters.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Reset(e.params.DefaultSize)
}

// SetParameter validates and applies a named parameter write. Dependent
// structures follow: the grid re-buckets when range_of_view changes, and
// default_size rewrites the size of every active agent.
func (e *Engine) SetParameter(name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.params.Set(name, value); err != nil {
		return err
	}
	switch name {
	case "range_of_view":
		e.grid.Reconfigure(value)
	case "default_size":
		e.store.SetAllSizes(value)
	}
	return nil
}

// GetParameter reads one named parameter.
func (e *Engine) GetParameter(name string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Get(name)
}

// SetBoundaryMode switches edge handling starting with the next tick.
func (e *Engine) SetBoundaryMode(mode boids.BoundaryMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.Boundary = mode
}

// Params returns a copy of the current parameter set.
func (e *Engine) Params() boids.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Population returns the active agent count.
func (e *Engine) Population() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Count()
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Capacity returns the fixed agent capacity. Immutable after construction.
func (e *Engine) Capacity() int {
	return e.store.Capacity()
}

// World returns the world bounds. Immutable after construction.
func (e *Engine) World() boids.World {
	return e.store.World()
}

// Perf returns the engine's performance collector. It is maintained by the
// goroutine driving Tick and must be read from that goroutine.
func (e *Engine) Perf() *telemetry.PerfCollector {
	return e.perf
}

// Close stops the worker pool.
func (e *Engine) Close() {
	e.pool.stop()
}
