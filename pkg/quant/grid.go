// Package quant holds the numeric primitives shared by the simulation:
// the exchange price grid, dt scaling helpers and the seeded RNG.
package quant

import (
	"fmt"
	"math"
)

// Price is a price on the exchange tick grid, in whole currency units.
type Price int64

// MinPrice is the lowest price the market may trade at.
const MinPrice Price = 10

func (p Price) String() string {
	return fmt.Sprintf("%d", int64(p))
}

// Float returns p as float64 for force arithmetic.
func (p Price) Float() float64 {
	return float64(p)
}

// tickBand maps an inclusive upper bound to its tick unit.
type tickBand struct {
	upTo float64
	unit float64
}

var tickBands = []tickBand{
	{3000, 1},
	{5000, 5},
	{30000, 10},
	{50000, 50},
	{100000, 100},
	{300000, 500},
}

const topTickUnit = 1000

// TickUnit returns the minimum price increment for the band containing |x|.
func TickUnit(x float64) float64 {
	ax := math.Abs(x)
	for _, b := range tickBands {
		if ax <= b.upTo {
			return b.unit
		}
	}
	return topTickUnit
}

// TickUnitOf is TickUnit for a grid price.
func TickUnitOf(p Price) Price {
	return Price(TickUnit(float64(p)))
}

// RoundToTick rounds x to the nearest multiple of its tick unit.
// Rounding is symmetric about zero so signed deltas behave the same
// in both directions.
func RoundToTick(x float64) float64 {
	u := TickUnit(x)
	if x < 0 {
		return -math.Round(-x/u) * u
	}
	return math.Round(x/u) * u
}

// FloorToTick rounds x down to a multiple of its tick unit.
func FloorToTick(x float64) float64 {
	u := TickUnit(x)
	return math.Floor(x/u) * u
}

// CeilToTick rounds x up to a multiple of its tick unit.
func CeilToTick(x float64) float64 {
	u := TickUnit(x)
	return math.Ceil(x/u) * u
}

// RoundPrice rounds x onto the grid and floors it at MinPrice.
func RoundPrice(x float64) Price {
	if math.IsNaN(x) || x < float64(MinPrice) {
		return MinPrice
	}
	if x > math.MaxInt64/2 {
		x = math.MaxInt64 / 2
	}
	return Price(RoundToTick(x))
}

// FloorPrice rounds x down onto the grid and floors it at MinPrice.
func FloorPrice(x float64) Price {
	p := Price(FloorToTick(x))
	if p < MinPrice {
		return MinPrice
	}
	return p
}

// CeilPrice rounds x up onto the grid and floors it at MinPrice.
func CeilPrice(x float64) Price {
	p := Price(CeilToTick(x))
	if p < MinPrice {
		return MinPrice
	}
	return p
}

// OnGrid reports whether p is an exact multiple of its own tick unit.
func OnGrid(p Price) bool {
	return p%TickUnitOf(p) == 0
}
