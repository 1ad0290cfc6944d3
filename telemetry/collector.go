package telemetry

import (
	"math"
	"sync"
)

// Collector accumulates control events within time windows and produces
// FlockStats. Record methods are safe to call from connection handlers;
// Flush runs on the simulation loop.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	mu sync.Mutex

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	paramChanges      int
	populationChanges int
	resets            int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// RecordParamChange records an accepted parameter write.
func (c *Collector) RecordParamChange() {
	c.mu.Lock()
	c.paramChanges++
	c.mu.Unlock()
}

// RecordPopulationChange records an accepted population resize or add.
func (c *Collector) RecordPopulationChange() {
	c.mu.Lock()
	c.populationChanges++
	c.mu.Unlock()
}

// RecordReset records a world reset.
func (c *Collector) RecordReset() {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a FlockStats from the current agent state and resets the
// event counters for the next window. velX, velY and neighbors hold the
// active agents sampled at window end.
func (c *Collector) Flush(currentTick int64, velX, velY []float64, neighbors []int32) FlockStats {
	n := len(velX)

	speeds := make([]float64, n)
	for i := 0; i < n; i++ {
		speeds[i] = math.Hypot(velX[i], velY[i])
	}
	mean, std, p10, p50, p90 := ComputeSpeedStats(speeds)

	var neighborsMean float64
	if n > 0 {
		var sum int64
		for _, k := range neighbors {
			sum += int64(k)
		}
		neighborsMean = float64(sum) / float64(n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := FlockStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Population: n,

		SpeedMean: mean,
		SpeedStd:  std,
		SpeedP10:  p10,
		SpeedP50:  p50,
		SpeedP90:  p90,

		Polarization:  Polarization(velX, velY),
		NeighborsMean: neighborsMean,

		ParamChanges:      c.paramChanges,
		PopulationChanges: c.populationChanges,
		Resets:            c.resets,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.paramChanges = 0
	c.populationChanges = 0
	c.resets = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
