package news

import "market_sim/internal/domain"

// ImpactDist is the impact distribution of immediate news under a regime.
type ImpactDist struct {
	Mean, SD float64
}

// Config holds the news tables.
type Config struct {
	TriggerProb   map[domain.Regime]float64
	MaxEvents     map[domain.Regime]int
	Impact        map[domain.Regime]ImpactDist
	MinGapMinutes float64
	FirstDelayMin float64 // first immediate event lands in [open+min, open+max]
	FirstDelayMax float64
	ExtraGapMax   float64 // random slack added on top of MinGapMinutes
	LatestMinute  float64
	PreviewProb   float64
	BaseShockSD   float64 // fraction of price, same unit as the market engine
	ForceMult     float64

	WeekendMin, WeekendMax int
	WeekendDrift           float64 // impact shift per weekend item
	WeekendVol             float64 // impact sd growth per weekend item
	WeekendTriggerBias     float64 // trigger probability shift per weekend item
}

// DefaultConfig returns the tuned tables.
func DefaultConfig() Config {
	return Config{
		TriggerProb: map[domain.Regime]float64{
			domain.RegimeBullish:   0.55,
			domain.RegimeBearish:   0.60,
			domain.RegimeRange:     0.40,
			domain.RegimeTurbulent: 0.75,
			domain.RegimeBubble:    0.70,
			domain.RegimeCrash:     0.85,
		},
		MaxEvents: map[domain.Regime]int{
			domain.RegimeBullish:   2,
			domain.RegimeBearish:   2,
			domain.RegimeRange:     1,
			domain.RegimeTurbulent: 3,
			domain.RegimeBubble:    3,
			domain.RegimeCrash:     3,
		},
		Impact: map[domain.Regime]ImpactDist{
			domain.RegimeBullish:   {Mean: 0.3, SD: 0.4},
			domain.RegimeBearish:   {Mean: -0.3, SD: 0.4},
			domain.RegimeRange:     {Mean: 0, SD: 0.4},
			domain.RegimeTurbulent: {Mean: 0, SD: 0.7},
			domain.RegimeBubble:    {Mean: 0.5, SD: 0.5},
			domain.RegimeCrash:     {Mean: -0.6, SD: 0.4},
		},
		MinGapMinutes:      30,
		FirstDelayMin:      5,
		FirstDelayMax:      120,
		ExtraGapMax:        60,
		LatestMinute:       domain.SessionClose - 15,
		PreviewProb:        0.3,
		BaseShockSD:        0.0008,
		ForceMult:          5,
		WeekendMin:         1,
		WeekendMax:         3,
		WeekendDrift:       0.1,
		WeekendVol:         0.1,
		WeekendTriggerBias: 0.05,
	}
}
