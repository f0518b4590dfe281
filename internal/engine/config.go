package engine

import (
	"time"

	"market_sim/internal/domain"
	"market_sim/internal/microstructure"
	"market_sim/internal/volume"
)

// IntervalDist is the real-time gap between ticks at speed 1.
type IntervalDist struct {
	Mean time.Duration
	SD   time.Duration
}

// Config holds the market engine tables.
type Config struct {
	Intervals   map[domain.VolatilityState]IntervalDist
	MinInterval time.Duration

	// Simulated minutes per real second at speed 1.
	NormalRate float64
	LunchRate  float64

	// VolTransition[from][to] per reference tick, in domain.VolatilityStates order.
	VolTransition [3][3]float64
	TowardBias    float64
	AwayBias      float64

	BaseShockSD  float64 // fraction of price per reference tick
	TimeOfDayVol map[domain.TimeZone]float64

	FatTailProb float64
	FatTailMin  float64 // multiple of the normal shock sd
	FatTailMax  float64

	ExternalDecay     float64 // retention per reference tick
	ExternalSnapUnits float64 // snap to zero below this many tick units
	ExtremeShockSDs   float64 // external force beyond this many sds flags the tick extreme

	MomentumDecay  float64
	MomentumAlpha  float64
	MomentumWeight float64
	MaxMomentum    float64 // fraction of price

	Micro  microstructure.Config
	Volume volume.Config
}

// DefaultConfig returns the tuned tables.
func DefaultConfig() Config {
	return Config{
		Intervals: map[domain.VolatilityState]IntervalDist{
			domain.VolHigh:   {Mean: 250 * time.Millisecond, SD: 80 * time.Millisecond},
			domain.VolNormal: {Mean: 500 * time.Millisecond, SD: 150 * time.Millisecond},
			domain.VolLow:    {Mean: 900 * time.Millisecond, SD: 250 * time.Millisecond},
		},
		MinInterval: 20 * time.Millisecond,
		NormalRate:  1.0,
		LunchRate:   10.0,
		VolTransition: [3][3]float64{
			// high  normal low
			{0.90, 0.08, 0.02}, // high
			{0.04, 0.92, 0.04}, // normal
			{0.02, 0.08, 0.90}, // low
		},
		TowardBias:  1.5,
		AwayBias:    0.5,
		BaseShockSD: 0.0008,
		TimeOfDayVol: map[domain.TimeZone]float64{
			domain.ZoneOpen:      1.5,
			domain.ZoneMorning:   1.0,
			domain.ZoneLunch:     0.6,
			domain.ZoneAfternoon: 0.9,
			domain.ZoneClose:     1.3,
		},
		FatTailProb:       0.003,
		FatTailMin:        3,
		FatTailMax:        5,
		ExternalDecay:     0.85,
		ExternalSnapUnits: 0.1,
		ExtremeShockSDs:   2,
		MomentumDecay:     0.8,
		MomentumAlpha:     0.3,
		MomentumWeight:    0.25,
		MaxMomentum:       0.002,
		Micro:             microstructure.DefaultConfig(),
		Volume:            volume.DefaultConfig(),
	}
}
