package microstructure

import "market_sim/internal/domain"

// RoundLevel is one scale of round-number attraction.
type RoundLevel struct {
	Ticks     float64 // level spacing in tick units
	Strength  float64 // max pull, fraction of price per reference tick
	Zone      float64 // attraction zone, fraction of price
	Breakaway float64 // momentum boost on crossing, fraction of price
}

// TickRange is an inclusive integer range.
type TickRange struct {
	Min, Max int
}

// Config holds the microstructure tables.
type Config struct {
	IgnitionProb         float64 // per reference tick
	IgnitionVolMult      map[domain.VolatilityState]float64
	IgnitionTicks        TickRange
	IgnitionForceMin     float64 // fraction of price per minute
	IgnitionForceMax     float64
	IgnitionMomentumBias float64
	JitterMin, JitterMax float64

	StopHuntZone     float64 // proximity to the extreme, fraction of price
	StopHuntMinRange float64 // session range needed before hunting, fraction of price
	StopHuntProb     float64
	PierceTicks      TickRange
	PierceForce      float64
	ReversalTicks    TickRange
	ReversalForce    float64

	RoundLevels []RoundLevel // smallest scale first

	MaxAccumulationMult float64
	ReleaseMultMin      float64
	ReleaseMultMax      float64
	MaxStickyTicks      map[domain.VolatilityState]TickRange

	WickMin, WickMax float64 // wick size as a multiple of |price change|
}

// DefaultConfig returns the tuned tables.
func DefaultConfig() Config {
	return Config{
		IgnitionProb: 0.004,
		IgnitionVolMult: map[domain.VolatilityState]float64{
			domain.VolHigh:   2.0,
			domain.VolNormal: 1.0,
			domain.VolLow:    0.4,
		},
		IgnitionTicks:        TickRange{6, 20},
		IgnitionForceMin:     0.0006,
		IgnitionForceMax:     0.0015,
		IgnitionMomentumBias: 0.6,
		JitterMin:            0.7,
		JitterMax:            1.3,

		StopHuntZone:     0.003,
		StopHuntMinRange: 0.004,
		StopHuntProb:     0.02,
		PierceTicks:      TickRange{3, 6},
		PierceForce:      0.0012,
		ReversalTicks:    TickRange{6, 12},
		ReversalForce:    0.0015,

		RoundLevels: []RoundLevel{
			{Ticks: 10, Strength: 0.0004, Zone: 0.002, Breakaway: 0.0001},
			{Ticks: 50, Strength: 0.0008, Zone: 0.003, Breakaway: 0.0002},
			{Ticks: 100, Strength: 0.0015, Zone: 0.004, Breakaway: 0.0004},
		},

		MaxAccumulationMult: 3,
		ReleaseMultMin:      0.8,
		ReleaseMultMax:      1.6,
		MaxStickyTicks: map[domain.VolatilityState]TickRange{
			domain.VolHigh:   {1, 3},
			domain.VolNormal: {2, 5},
			domain.VolLow:    {3, 8},
		},

		WickMin: 0.3,
		WickMax: 0.8,
	}
}
