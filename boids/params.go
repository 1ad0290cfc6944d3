// Package boids implements the flocking core: the agent store, the
// per-tick spatial hash, the steering kernel, and boundary physics.
package boids

import (
	"errors"
	"fmt"
)

// Control-plane errors. Both are non-fatal: the simulation state is
// untouched when a set fails.
var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidValue     = errors.New("invalid parameter value")
)

// BoundaryMode selects what happens when an agent crosses a world edge.
type BoundaryMode int

const (
	// BoundaryWrap teleports the agent to the opposite edge.
	BoundaryWrap BoundaryMode = iota
	// BoundaryBounce clamps the agent to the edge and reflects its velocity.
	BoundaryBounce
)

// String returns the wire name of the mode.
func (m BoundaryMode) String() string {
	switch m {
	case BoundaryWrap:
		return "wrap"
	case BoundaryBounce:
		return "bounce"
	default:
		return fmt.Sprintf("BoundaryMode(%d)", int(m))
	}
}

// ParseBoundaryMode maps a wire name to a BoundaryMode.
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch s {
	case "wrap":
		return BoundaryWrap, nil
	case "bounce":
		return BoundaryBounce, nil
	default:
		return BoundaryWrap, fmt.Errorf("%w: boundary_mode %q", ErrInvalidValue, s)
	}
}

// Params is the shared tunable parameter set. One instance lives on the
// engine and is mutated only between ticks.
type Params struct {
	MaxVelocity       float64 // Speed ceiling after steering
	MinVelocity       float64 // Isolated agents decay toward this
	RangeOfView       float64 // Neighbor visibility radius
	AlignmentStrength float64 // Gain on alignment and cohesion steering
	RepulsionFactor   float64 // Separation impulse per colliding neighbor
	RandomFactor      float64 // Per-axis uniform velocity jitter per tick
	SlowFactor        float64 // Speed shed per tick while isolated
	ConfusionFactor   float64 // Steering damping per visible neighbor
	DistanceFactor    float64 // Cohesion falloff with centroid distance
	DefaultSize       float64 // Collision radius assigned to new agents
	Boundary          BoundaryMode
}

// Numeric parameter names recognized by Set, in wire order.
var paramNames = []string{
	"max_velocity",
	"min_velocity",
	"range_of_view",
	"alignment_strength",
	"repulsion_factor",
	"random_factor",
	"slow_factor",
	"confusion_factor",
	"distance_factor",
	"default_size",
}

// ParamNames returns the closed set of numeric parameter names.
func ParamNames() []string {
	out := make([]string, len(paramNames))
	copy(out, paramNames)
	return out
}

// Set applies a validated write to one named numeric parameter. Unknown
// names return ErrUnknownParameter; out-of-range values return
// ErrInvalidValue. On error the receiver is unchanged.
// boundary_mode is not numeric and is set through ParseBoundaryMode.
func (p *Params) Set(name string, value float64) error {
	switch name {
	case "max_velocity":
		if value <= 0 || value < p.MinVelocity {
			return fmt.Errorf("%w: max_velocity %v", ErrInvalidValue, value)
		}
		p.MaxVelocity = value
	case "min_velocity":
		if value < 0 || value > p.MaxVelocity {
			return fmt.Errorf("%w: min_velocity %v", ErrInvalidValue, value)
		}
		p.MinVelocity = value
	case "range_of_view":
		if value <= 0 {
			return fmt.Errorf("%w: range_of_view %v", ErrInvalidValue, value)
		}
		p.RangeOfView = value
	case "alignment_strength":
		if value < 0 {
			return fmt.Errorf("%w: alignment_strength %v", ErrInvalidValue, value)
		}
		p.AlignmentStrength = value
	case "repulsion_factor":
		if value < 0 {
			return fmt.Errorf("%w: repulsion_factor %v", ErrInvalidValue, value)
		}
		p.RepulsionFactor = value
	case "random_factor":
		if value < 0 {
			return fmt.Errorf("%w: random_factor %v", ErrInvalidValue, value)
		}
		p.RandomFactor = value
	case "slow_factor":
		if value < 0 {
			return fmt.Errorf("%w: slow_factor %v", ErrInvalidValue, value)
		}
		p.SlowFactor = value
	case "confusion_factor":
		if value < 0 {
			return fmt.Errorf("%w: confusion_factor %v", ErrInvalidValue, value)
		}
		p.ConfusionFactor = value
	case "distance_factor":
		if value < 0 {
			return fmt.Errorf("%w: distance_factor %v", ErrInvalidValue, value)
		}
		p.DistanceFactor = value
	case "default_size":
		if value < 0 {
			return fmt.Errorf("%w: default_size %v", ErrInvalidValue, value)
		}
		p.DefaultSize = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return nil
}

// Validate checks a full parameter set against the same rules Set applies
// to individual writes. Useful after loading parameters from config.
func (p *Params) Validate() error {
	if p.MaxVelocity <= 0 || p.MaxVelocity < p.MinVelocity {
		return fmt.Errorf("%w: max_velocity %v", ErrInvalidValue, p.MaxVelocity)
	}
	if p.MinVelocity < 0 {
		return fmt.Errorf("%w: min_velocity %v", ErrInvalidValue, p.MinVelocity)
	}
	if p.RangeOfView <= 0 {
		return fmt.Errorf("%w: range_of_view %v", ErrInvalidValue, p.RangeOfView)
	}
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"alignment_strength", p.AlignmentStrength},
		{"repulsion_factor", p.RepulsionFactor},
		{"random_factor", p.RandomFactor},
		{"slow_factor", p.SlowFactor},
		{"confusion_factor", p.ConfusionFactor},
		{"distance_factor", p.DistanceFactor},
		{"default_size", p.DefaultSize},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			return fmt.Errorf("%w: %s %v", ErrInvalidValue, f.name, f.value)
		}
	}
	return nil
}

// Get reads one named numeric parameter by its wire name.
func (p *Params) Get(name string) (float64, error) {
	switch name {
	case "max_velocity":
		return p.MaxVelocity, nil
	case "min_velocity":
		return p.MinVelocity, nil
	case "range_of_view":
		return p.RangeOfView, nil
	case "alignment_strength":
		return p.AlignmentStrength, nil
	case "repulsion_factor":
		return p.RepulsionFactor, nil
	case "random_factor":
		return p.RandomFactor, nil
	case "slow_factor":
		return p.SlowFactor, nil
	case "confusion_factor":
		return p.ConfusionFactor, nil
	case "distance_factor":
		return p.DistanceFactor, nil
	case "default_size":
		return p.DefaultSize, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
}
