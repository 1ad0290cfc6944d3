package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FlockStats holds aggregated flock metrics for a time window.
type FlockStats struct {
	WindowStartTick int64   `csv:"-" json:"window_start"`
	WindowEndTick   int64   `csv:"window_end" json:"window_end"`
	SimTimeSec      float64 `csv:"sim_time" json:"sim_time"`

	// Population at window end
	Population int `csv:"population" json:"population"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean" json:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std" json:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10" json:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50" json:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90" json:"speed_p90"`

	// Polarization is the length of the mean heading vector: 1 when the
	// flock moves as one, near 0 when headings are uniformly random.
	Polarization float64 `csv:"polarization" json:"polarization"`

	// Mean visible-neighbor count at window end
	NeighborsMean float64 `csv:"neighbors_mean" json:"neighbors_mean"`

	// Control events during window
	ParamChanges      int `csv:"param_changes" json:"param_changes"`
	PopulationChanges int `csv:"population_changes" json:"population_changes"`
	Resets            int `csv:"resets" json:"resets"`
}

// ComputeSpeedStats calculates mean, std, and percentiles of agent speeds.
func ComputeSpeedStats(speeds []float64) (mean, std, p10, p50, p90 float64) {
	n := len(speeds)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean = stat.Mean(speeds, nil)
	if n > 1 {
		std = stat.StdDev(speeds, nil)
	}

	// Quantile wants sorted input
	sorted := make([]float64, n)
	copy(sorted, speeds)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.LinInterp, sorted, nil)
	p50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.90, stat.LinInterp, sorted, nil)

	return mean, std, p10, p50, p90
}

// Polarization returns the length of the mean unit-velocity vector, in
// [0, 1]. Agents at rest carry no heading and are excluded.
func Polarization(velX, velY []float64) float64 {
	var sumX, sumY float64
	var n int
	for i := range velX {
		speed := math.Hypot(velX[i], velY[i])
		if speed == 0 {
			continue
		}
		sumX += velX[i] / speed
		sumY += velY[i] / speed
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Hypot(sumX, sumY) / float64(n)
}

// LogValue implements slog.LogValuer for structured logging.
func (s FlockStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("population", s.Population),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("neighbors_mean", s.NeighborsMean),
		slog.Int("param_changes", s.ParamChanges),
		slog.Int("population_changes", s.PopulationChanges),
		slog.Int("resets", s.Resets),
	)
}

// LogStats logs the window stats using slog.
func (s FlockStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"population", s.Population,
		"speed_mean", s.SpeedMean,
		"speed_std", s.SpeedStd,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"polarization", s.Polarization,
		"neighbors_mean", s.NeighborsMean,
		"param_changes", s.ParamChanges,
		"population_changes", s.PopulationChanges,
		"resets", s.Resets,
	)
}
