package sim

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/telemetry"
)

// FrameFunc receives each outbound frame. Implementations must be safe to
// call from the runner goroutine and from pause transitions.
type FrameFunc func(f *Frame, paused bool)

// Runner drives the engine at the configured wall-clock cadence and owns
// the telemetry flush loop. Pause and Resume may be called from any
// goroutine.
type Runner struct {
	engine   *Engine
	interval time.Duration
	every    int // broadcast a frame every N ticks

	collector *telemetry.Collector
	output    *telemetry.OutputManager
	onFrame   FrameFunc

	paused atomic.Bool
	count  uint64 // ticks driven by this runner

	frame      Frame // reused broadcast buffer
	statsFrame Frame // reused telemetry sample buffer
}

// NewRunner wires a runner to an engine. out may be nil (CSV output
// disabled); onFrame may be nil (no broadcast).
func NewRunner(eng *Engine, cfg *config.Config, out *telemetry.OutputManager, onFrame FrameFunc) *Runner {
	interval := cfg.Derived.TickInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	every := cfg.Server.BroadcastEvery
	if every < 1 {
		every = 1
	}

	return &Runner{
		engine:    eng,
		interval:  interval,
		every:     every,
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Derived.DT),
		output:    out,
		onFrame:   onFrame,
	}
}

// Run drives the tick loop until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.step()
		}
	}
}

// RunHeadless advances n ticks as fast as possible, flushing telemetry on
// the usual cadence. Used for batch runs without a network surface.
func (r *Runner) RunHeadless(n int) {
	for i := 0; i < n; i++ {
		r.count++
		r.engine.Tick(nil)
		r.maybeFlush()
	}
}

func (r *Runner) step() {
	if r.paused.Load() {
		return
	}

	r.count++
	frameDue := r.onFrame != nil && r.count%uint64(r.every) == 0

	var frame *Frame
	if frameDue {
		frame = &r.frame
	}
	r.engine.Tick(frame)

	if frameDue {
		r.engine.Perf().RecordFrame()
		r.onFrame(frame, false)
	}

	r.maybeFlush()
}

func (r *Runner) maybeFlush() {
	tick := int64(r.engine.TickCount())
	if !r.collector.ShouldFlush(tick) {
		return
	}

	r.engine.Snapshot(&r.statsFrame)
	stats := r.collector.Flush(tick, r.statsFrame.VelX, r.statsFrame.VelY, r.statsFrame.Neighbors)
	stats.LogStats()
	if err := r.output.WriteFlock(stats); err != nil {
		slog.Warn("flock stats write failed", "err", err)
	}

	perfStats := r.engine.Perf().Stats()
	perfStats.LogStats()
	if err := r.output.WritePerf(perfStats, tick); err != nil {
		slog.Warn("perf stats write failed", "err", err)
	}
}

// Pause halts ticking. The frozen state is broadcast once, flagged paused,
// so clients render the stopped flock.
func (r *Runner) Pause() {
	if r.paused.Swap(true) {
		return
	}
	slog.Info("simulation paused", "tick", r.engine.TickCount())
	if r.onFrame != nil {
		var f Frame
		r.engine.Snapshot(&f)
		r.onFrame(&f, true)
	}
}

// Resume restarts ticking.
func (r *Runner) Resume() {
	if !r.paused.Swap(false) {
		return
	}
	slog.Info("simulation resumed", "tick", r.engine.TickCount())
}

// Paused reports whether the tick loop is currently halted.
func (r *Runner) Paused() bool {
	return r.paused.Load()
}

// Collector returns the telemetry collector so control handlers can record
// events. Safe for concurrent use.
func (r *Runner) Collector() *telemetry.Collector {
	return r.collector
}
