package regime

import "market_sim/internal/domain"

// Params is the per-regime bias applied by the market engine.
type Params struct {
	Drift   float64 // fraction of price per reference tick
	VolMult float64 // multiplier on the base shock sd
}

// Anomaly is a calendar-month bias, independent of the regime.
type Anomaly struct {
	Month     int     `json:"month"`
	Tag       string  `json:"tag"`
	DriftBias float64 `json:"drift_bias"`
	VolBias   float64 `json:"vol_bias"`
	Visible   bool    `json:"visible"`
}

// Config holds the numeric tables of the regime process.
type Config struct {
	// Transition[from][to], rows sum to 1.
	Transition      [domain.RegimeCount][domain.RegimeCount]float64
	Initial         [domain.RegimeCount]float64
	Params          [domain.RegimeCount]Params
	BaseStrength    [domain.RegimeCount]float64
	StrengthNoise   float64
	AccuracyByLevel [5]float64
	Anomalies       [12]Anomaly
	// Anomalies are shown to the player from this level on.
	AnomalyVisibleLevel int
}

// DefaultConfig returns the tuned tables.
func DefaultConfig() Config {
	return Config{
		Transition: [domain.RegimeCount][domain.RegimeCount]float64{
			//  bull  bear  range turb  bubble crash
			{0.50, 0.10, 0.20, 0.10, 0.08, 0.02}, // bullish
			{0.10, 0.45, 0.20, 0.12, 0.01, 0.12}, // bearish
			{0.25, 0.20, 0.35, 0.15, 0.03, 0.02}, // range
			{0.15, 0.20, 0.20, 0.35, 0.03, 0.07}, // turbulent
			{0.20, 0.05, 0.05, 0.15, 0.30, 0.25}, // bubble
			{0.10, 0.30, 0.15, 0.30, 0.00, 0.15}, // crash
		},
		Initial: [domain.RegimeCount]float64{0.30, 0.20, 0.35, 0.15, 0, 0},
		Params: [domain.RegimeCount]Params{
			{Drift: 1.5e-5, VolMult: 1.0},
			{Drift: -1.5e-5, VolMult: 1.1},
			{Drift: 0, VolMult: 0.8},
			{Drift: 0, VolMult: 1.6},
			{Drift: 4e-5, VolMult: 1.4},
			{Drift: -5e-5, VolMult: 1.9},
		},
		BaseStrength:    [domain.RegimeCount]float64{0.6, 0.6, 0.3, 0.7, 0.85, 0.9},
		StrengthNoise:   0.15,
		AccuracyByLevel: [5]float64{0.50, 0.575, 0.65, 0.725, 0.80},
		Anomalies: [12]Anomaly{
			{Month: 1, Tag: "january-effect", DriftBias: 2e-6, VolBias: 1.0},
			{Month: 2, Tag: "", DriftBias: 0, VolBias: 1.0},
			{Month: 3, Tag: "quarter-end-rebalancing", DriftBias: 0, VolBias: 1.1},
			{Month: 4, Tag: "earnings-season", DriftBias: 0, VolBias: 1.15},
			{Month: 5, Tag: "sell-in-may", DriftBias: -1.5e-6, VolBias: 1.0},
			{Month: 6, Tag: "quad-witching", DriftBias: 0, VolBias: 1.2},
			{Month: 7, Tag: "summer-rally", DriftBias: 1e-6, VolBias: 0.95},
			{Month: 8, Tag: "summer-doldrums", DriftBias: 0, VolBias: 0.85},
			{Month: 9, Tag: "september-slump", DriftBias: -2e-6, VolBias: 1.05},
			{Month: 10, Tag: "october-jitters", DriftBias: 0, VolBias: 1.25},
			{Month: 11, Tag: "year-end-rally", DriftBias: 1.5e-6, VolBias: 1.0},
			{Month: 12, Tag: "santa-rally", DriftBias: 2e-6, VolBias: 0.9},
		},
		AnomalyVisibleLevel: 3,
	}
}
