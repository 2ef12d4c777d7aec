package core

import (
	"math"
	"math/rand/v2"
)

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// IntN returns a random int in [0, n). It returns 0 when n <= 0.
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}

// Weighted picks an index with probability proportional to its weight using a
// cumulative scan. Non-positive weights are never picked; -1 is returned when
// no weight is positive.
func (r *RNG) Weighted(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	roll := r.r.IntN(total)
	cumulative := 0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if roll < cumulative {
			return i
		}
	}
	return last
}

// GaussianRange draws from a normal distribution centred between min and max
// with a standard deviation of a sixth of the span, clamped to [min, max].
func (r *RNG) GaussianRange(min, max float64) float64 {
	if max <= min {
		return min
	}
	mean := (min + max) / 2
	std := (max - min) / 6
	v := mean + r.r.NormFloat64()*std
	return math.Max(min, math.Min(max, v))
}
