package boids

import "math/rand"

// initialVelJitter bounds each velocity axis of a freshly added agent.
const initialVelJitter = 0.1

// Store holds the agent population as parallel arrays of fixed capacity.
// Only indices [0, Count()) are meaningful; shrinking the population
// truncates from the end, leaving trailing values stale until the slots
// are reused. No operation reallocates the backing arrays.
//
// A Store is not safe for concurrent use; the engine serializes access.
type Store struct {
	PosX, PosY []float64
	VelX, VelY []float64
	Size       []float64

	world    World
	capacity int
	count    int
	rng      *rand.Rand
}

// NewStore allocates a store of fixed capacity over the given world.
// The rng drives random placement for Add and Reset.
func NewStore(world World, capacity int, rng *rand.Rand) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		PosX:     make([]float64, capacity),
		PosY:     make([]float64, capacity),
		VelX:     make([]float64, capacity),
		VelY:     make([]float64, capacity),
		Size:     make([]float64, capacity),
		world:    world,
		capacity: capacity,
		rng:      rng,
	}
}

// Count returns the active population.
func (s *Store) Count() int { return s.count }

// Capacity returns the fixed buffer size.
func (s *Store) Capacity() int { return s.capacity }

// World returns the world the store populates.
func (s *Store) World() World { return s.world }

// Add appends up to n agents at uniformly random positions with small
// random initial velocities and the given size. Requests beyond the
// remaining capacity clamp silently; the return value is the number
// actually added.
func (s *Store) Add(n int, size float64) int {
	if n <= 0 {
		return 0
	}
	space := s.capacity - s.count
	if n > space {
		n = space
	}
	w := s.world
	for i := s.count; i < s.count+n; i++ {
		s.PosX[i] = w.MinX + s.rng.Float64()*w.Width()
		s.PosY[i] = w.MinY + s.rng.Float64()*w.Height()
		s.VelX[i] = (s.rng.Float64()*2 - 1) * initialVelJitter
		s.VelY[i] = (s.rng.Float64()*2 - 1) * initialVelJitter
		s.Size[i] = size
	}
	s.count += n
	return n
}

// SetCount adjusts the active population to target, clamped to
// [0, capacity], by adding agents of the given size or truncating.
// It returns the resulting count.
func (s *Store) SetCount(target int, size float64) int {
	if target < 0 {
		target = 0
	} else if target > s.capacity {
		target = s.capacity
	}
	if target > s.count {
		s.Add(target-s.count, size)
	} else {
		s.count = target
	}
	return s.count
}

// Reset zeroes every buffer and re-adds the pre-reset population at fresh
// random positions.
func (s *Store) Reset(size float64) {
	prev := s.count
	for i := 0; i < s.capacity; i++ {
		s.PosX[i] = 0
		s.PosY[i] = 0
		s.VelX[i] = 0
		s.VelY[i] = 0
		s.Size[i] = 0
	}
	s.count = 0
	s.Add(prev, size)
}

// SetAllSizes rewrites the size of every active agent. Called when the
// default_size parameter changes.
func (s *Store) SetAllSizes(size float64) {
	for i := 0; i < s.count; i++ {
		s.Size[i] = size
	}
}

// Perturb adds independent uniform jitter in [-factor/2, factor/2) to
// each velocity axis of every active agent. Sequential: it consumes the
// store's single RNG stream.
func (s *Store) Perturb(factor float64) {
	if factor == 0 {
		return
	}
	for i := 0; i < s.count; i++ {
		s.VelX[i] += (s.rng.Float64() - 0.5) * factor
		s.VelY[i] += (s.rng.Float64() - 0.5) * factor
	}
}
