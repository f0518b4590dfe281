// Package volume estimates per-tick traded volume.
package volume

import (
	"math"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
)

// Config holds the volume tables.
type Config struct {
	Base           map[domain.VolatilityState]float64
	TimeOfDay      map[domain.TimeZone]float64
	Sigma          float64 // log-normal sigma of the random factor
	Sensitivity    float64 // price fraction that doubles volume
	MaxChangeMult  float64
	IgnitionMult   float64
	StickyMult     float64
	SoftCapBaseMul float64 // soft cap = base * SoftCapBaseMul
}

// DefaultConfig returns the tuned tables.
func DefaultConfig() Config {
	return Config{
		Base: map[domain.VolatilityState]float64{
			domain.VolHigh:   1800,
			domain.VolNormal: 1000,
			domain.VolLow:    500,
		},
		TimeOfDay: map[domain.TimeZone]float64{
			domain.ZoneOpen:      1.8,
			domain.ZoneMorning:   1.0,
			domain.ZoneLunch:     0.4,
			domain.ZoneAfternoon: 0.9,
			domain.ZoneClose:     1.6,
		},
		Sigma:          0.6,
		Sensitivity:    0.001,
		MaxChangeMult:  4,
		IgnitionMult:   2.2,
		StickyMult:     0.5,
		SoftCapBaseMul: 10,
	}
}

// Context is the per-tick input to Generate.
type Context struct {
	VolState       domain.VolatilityState
	Zone           domain.TimeZone
	Price          float64
	PriceChange    float64
	PriceChanged   bool
	IgnitionActive bool
	// AlgoOverride, when positive, replaces the multiplicative chain.
	AlgoOverride float64
}

// Model generates volume. It holds no per-session state.
type Model struct {
	cfg Config
	rng *quant.RNG
}

// NewModel creates a volume model.
func NewModel(cfg Config, rng *quant.RNG) *Model {
	return &Model{cfg: cfg, rng: rng}
}

// Generate returns the volume for one tick.
func (m *Model) Generate(ctx Context) int64 {
	base := m.base(ctx.VolState)
	softCap := base * m.cfg.SoftCapBaseMul

	if ctx.AlgoOverride > 0 {
		return m.finish(ctx.AlgoOverride, softCap)
	}

	tod := m.cfg.TimeOfDay[ctx.Zone]
	if tod == 0 {
		tod = 1
	}
	random := math.Exp(m.rng.Gaussian() * m.cfg.Sigma)
	raw := base * tod * random * m.ChangeMultiplier(ctx.Price, ctx.PriceChange) * m.eventMultiplier(ctx)
	return m.finish(raw, softCap)
}

func (m *Model) base(v domain.VolatilityState) float64 {
	if b, ok := m.cfg.Base[v]; ok {
		return b
	}
	return m.cfg.Base[domain.VolNormal]
}

// ChangeMultiplier is 1 + |change|/(price*sensitivity), capped.
func (m *Model) ChangeMultiplier(price, change float64) float64 {
	if price <= 0 || m.cfg.Sensitivity <= 0 {
		return 1
	}
	mult := 1 + math.Abs(change)/(price*m.cfg.Sensitivity)
	return math.Min(mult, m.cfg.MaxChangeMult)
}

func (m *Model) eventMultiplier(ctx Context) float64 {
	mult := 1.0
	if ctx.IgnitionActive {
		mult *= m.cfg.IgnitionMult
	}
	if !ctx.PriceChanged {
		mult *= m.cfg.StickyMult
	}
	return mult
}

func (m *Model) finish(raw, softCap float64) int64 {
	v := SoftCap(raw, softCap)
	if v < 1 {
		return 1
	}
	return int64(math.Round(v))
}

// SoftCap compresses raw smoothly toward capValue: cap*tanh(raw/cap).
func SoftCap(raw, capValue float64) float64 {
	if capValue <= 0 {
		return raw
	}
	return capValue * math.Tanh(raw/capValue)
}
