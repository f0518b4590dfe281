package session

import (
	"math"

	"market_sim/pkg/quant"
)

// GapConfig shapes the overnight move between two sessions.
type GapConfig struct {
	SD     float64 // gap sd as a fraction of the previous close
	MaxPct float64 // absolute cap, fraction of the previous close
}

// DefaultGapConfig returns the tuned overnight gap.
func DefaultGapConfig() GapConfig {
	return GapConfig{SD: 0.006, MaxPct: 0.05}
}

// OvernightGap draws the next open from the previous close. The spread
// widens with the regime volatility. The result is on the grid and rounded
// toward the previous close, so it never exceeds MaxPct.
func OvernightGap(rng *quant.RNG, prevClose quant.Price, volMult float64, cfg GapConfig) quant.Price {
	if volMult <= 0 {
		volMult = 1
	}
	pct := rng.Normal(0, cfg.SD*volMult)
	pct = math.Max(-cfg.MaxPct, math.Min(cfg.MaxPct, pct))
	x := prevClose.Float() * (1 + pct)
	if pct >= 0 {
		// A coarser tick band above the close can floor below it.
		return max(prevClose, quant.FloorPrice(x))
	}
	return min(prevClose, quant.CeilPrice(x))
}
