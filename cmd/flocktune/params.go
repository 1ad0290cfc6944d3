// Package main provides CMA-ES search over flocking parameters.
package main

import (
	"github.com/pthm-cable/flock/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Runtime parameter name
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
// max_velocity and min_velocity are locked: they define the speed regime
// the target scores assume. default_size and boundary_mode are locked as
// world geometry rather than behavior.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "alignment_strength", Min: 0.01, Max: 1.0, Default: 0.15},
			{Name: "repulsion_factor", Min: 0.0, Max: 0.5, Default: 0.03},
			{Name: "random_factor", Min: 0.0, Max: 1.0, Default: 0.25},
			{Name: "slow_factor", Min: 0.1, Max: 3.0, Default: 1.0},
			{Name: "confusion_factor", Min: 0.0, Max: 1.0, Default: 0.20},
			{Name: "distance_factor", Min: 0.001, Max: 0.5, Default: 0.05},
			{Name: "range_of_view", Min: 1.0, Max: 10.0, Default: 3.0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Flocking.AlignmentStrength = clamped[0]
	cfg.Flocking.RepulsionFactor = clamped[1]
	cfg.Flocking.RandomFactor = clamped[2]
	cfg.Flocking.SlowFactor = clamped[3]
	cfg.Flocking.ConfusionFactor = clamped[4]
	cfg.Flocking.DistanceFactor = clamped[5]
	cfg.Flocking.RangeOfView = clamped[6]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Flocking.AlignmentStrength,
		cfg.Flocking.RepulsionFactor,
		cfg.Flocking.RandomFactor,
		cfg.Flocking.SlowFactor,
		cfg.Flocking.ConfusionFactor,
		cfg.Flocking.DistanceFactor,
		cfg.Flocking.RangeOfView,
	}
}
