package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/sim"
	"github.com/pthm-cable/flock/telemetry"
)

// FitnessEvaluator runs headless simulations and scores parameter vectors
// against a target flocking regime.
type FitnessEvaluator struct {
	params      *ParamVector
	simTicks    int64
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64
	target      float64 // polarization setpoint

	// Best run tracking
	mu               sync.Mutex
	bestFitness      float64
	bestWindows      []telemetry.FlockStats
	lastPolarization float64 // mean polarization from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, simTicks int64, seeds []int64, target float64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		simTicks:    simTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 2.0, // 2 sim-seconds per stats window
		target:      target,
		bestFitness: math.Inf(1),
	}
}

// BestWindows returns the window stats from the best evaluation's best seed.
func (fe *FitnessEvaluator) BestWindows() []telemetry.FlockStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestWindows
}

// LastPolarization returns the mean polarization from the most recent evaluation.
func (fe *FitnessEvaluator) LastPolarization() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastPolarization
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness      float64
	polarization float64
	windows      []telemetry.FlockStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negated regime quality, averaged across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness:      -fe.computeQuality(windows),
				polarization: meanPolarization(windows),
				windows:      windows,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalPolarization float64
	bestSeedFitness := math.Inf(1)
	var bestSeedWindows []telemetry.FlockStats

	for _, r := range results {
		totalFitness += r.fitness
		totalPolarization += r.polarization
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedWindows = r.windows
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	// Update best tracking
	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestWindows = bestSeedWindows
	}
	fe.lastPolarization = totalPolarization / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless run and collects window stats.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) []telemetry.FlockStats {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Sim.Seed = seed
	// Seeds already run in parallel; keep each engine single-threaded.
	cfg.Sim.Workers = 1
	cfg.Telemetry.OutputDir = ""

	eng, err := sim.NewEngine(cfg)
	if err != nil {
		// Clamped vectors always satisfy the parameter bounds; treat a
		// rejection as a dead candidate rather than aborting the search.
		return nil
	}
	defer eng.Close()

	collector := telemetry.NewCollector(fe.statsWindow, cfg.Derived.DT)

	var frame sim.Frame
	var windows []telemetry.FlockStats
	for tick := int64(1); tick <= fe.simTicks; tick++ {
		eng.Tick(nil)
		if collector.ShouldFlush(tick) {
			eng.Snapshot(&frame)
			windows = append(windows, collector.Flush(tick, frame.VelX, frame.VelY, frame.Neighbors))
		}
	}
	return windows
}

// copyConfig returns an independent copy of the base config. Config holds
// only value fields, so a struct copy is a deep copy.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	return &c
}

// Quality component weights.
const (
	qualityWeightPolarization = 0.45
	qualityWeightStability    = 0.20
	qualityWeightSpread       = 0.20
	qualityWeightGrouping     = 0.15

	qualityWarmupWindows = 2 // skip first N windows (transient from random spawn)

	polScoreWidth    = 0.10 // tolerance around the polarization setpoint
	stabilityCVWidth = 0.15 // coefficient-of-variation considered unstable
	spreadWidth      = 0.25 // speed std/mean considered scattered
	groupingTarget   = 6.0  // mean visible neighbors for a cohesive flock
	groupingWidth    = 8.0
)

// computeQuality computes regime quality in [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.FlockStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	// --- Per-window accumulators ---
	var polSum, spreadSum, groupSum float64
	var count int

	// --- Full time series for stability ---
	pols := make([]float64, 0, len(valid))
	speeds := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.Population == 0 {
			continue
		}

		pols = append(pols, w.Polarization)
		speeds = append(speeds, w.SpeedMean)

		// 1. Polarization setpoint score
		polErr := w.Polarization - fe.target
		polSum += math.Exp(-math.Pow(polErr/polScoreWidth, 2))

		// 3. Speed spread score (tight speed distribution = ordered motion)
		if w.SpeedMean > 0 {
			rel := w.SpeedStd / w.SpeedMean
			spreadSum += math.Exp(-math.Pow(rel/spreadWidth, 2))
		}

		// 4. Grouping score (enough visible neighbors, but not a collapsed blob)
		groupSum += math.Exp(-math.Pow((w.NeighborsMean-groupingTarget)/groupingWidth, 2))

		count++
	}

	// No valid windows: zero quality
	if count == 0 {
		return 0
	}

	polScore := polSum / float64(count)

	// 2. Regime stability (CV of polarization and mean speed across windows)
	stabilityScore := 0.0
	if len(pols) >= 2 {
		cvPol := cv(pols)
		cvSpeed := cv(speeds)
		stabilityScore = math.Exp(-(cvPol*cvPol + cvSpeed*cvSpeed) / (stabilityCVWidth * stabilityCVWidth))
	}

	spreadScore := spreadSum / float64(count)
	groupScore := groupSum / float64(count)

	quality := qualityWeightPolarization*polScore +
		qualityWeightStability*stabilityScore +
		qualityWeightSpread*spreadScore +
		qualityWeightGrouping*groupScore

	return clamp01(quality)
}

// meanPolarization averages polarization over the post-warmup windows.
func meanPolarization(windows []telemetry.FlockStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]
	var sum float64
	for _, w := range valid {
		sum += w.Polarization
	}
	return sum / float64(len(valid))
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
