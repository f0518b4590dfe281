package quant

import (
	"math"
	"math/rand/v2"
)

// RNG is a seeded random source. Engines take their own *RNG so a session
// is reproducible from its seed.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a PCG-backed generator.
func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Fork derives an independent generator without consuming more than one
// draw from the parent.
func (g *RNG) Fork() *RNG {
	return NewRNG(g.r.Uint64())
}

// Float64 returns a value in [0,1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// Gaussian returns a standard normal draw.
func (g *RNG) Gaussian() float64 {
	return g.r.NormFloat64()
}

// Normal returns a draw from N(mean, sd).
func (g *RNG) Normal(mean, sd float64) float64 {
	return mean + sd*g.r.NormFloat64()
}

// Uniform returns a value in [lo,hi).
func (g *RNG) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.r.Float64()
}

// IntRange returns an integer in [lo,hi].
func (g *RNG) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.r.IntN(hi-lo+1)
}

// IntN returns an integer in [0,n).
func (g *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.IntN(n)
}

// Chance reports true with probability p.
func (g *RNG) Chance(p float64) bool {
	return g.r.Float64() < p
}

// Sign returns +1 or -1 with equal probability.
func (g *RNG) Sign() float64 {
	if g.r.IntN(2) == 0 {
		return -1
	}
	return 1
}

// Pick samples an index from weights by cumulative probability. Floating
// point overrun falls back to the last index.
func (g *RNG) Pick(weights []float64) int {
	if len(weights) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range weights {
		total += math.Max(w, 0)
	}
	if total <= 0 {
		return len(weights) - 1
	}
	x := g.r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += math.Max(w, 0)
		if x < acc {
			return i
		}
	}
	return len(weights) - 1
}
