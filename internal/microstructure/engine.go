// Package microstructure turns the macro price pressure of one tick into
// an actual grid price. It layers four effects on top of the macro force:
// momentum ignition bursts, two-phase stop-hunts around the session
// extremes, round-number attraction, and sticky-price accumulation.
package microstructure

import (
	"math"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
)

// Phase is the stage of a stop-hunt.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhasePierce
	PhaseReversal
)

func (p Phase) String() string {
	switch p {
	case PhasePierce:
		return "pierce"
	case PhaseReversal:
		return "reversal"
	default:
		return "none"
	}
}

type ignition struct {
	direction      float64
	remaining      float64 // simulated minutes
	forcePerMinute float64 // fraction of price
}

type stopHunt struct {
	phase          Phase
	direction      float64
	remaining      float64
	forcePerMinute float64
}

// Input is the per-tick request from the market engine.
type Input struct {
	Price      quant.Price
	MacroForce float64 // price units
	Momentum   float64 // sign is used to bias ignition direction
	Minutes    float64 // simulated minutes since the previous tick
	DT         float64 // Minutes in reference ticks
	VolState   domain.VolatilityState
	Extreme    bool // fat tail or large external force this tick; suppresses ignition
}

// Result is the microstructure outcome of one tick.
type Result struct {
	Price          quant.Price
	Changed        bool
	High, Low      quant.Price
	IgnitionActive bool
	StopHunt       Phase
	BreakawayBoost float64 // price units, fed back into momentum
	Released       bool
}

// Engine holds the per-session microstructure state. It is created per
// session, mutated once per tick and never persisted.
type Engine struct {
	cfg Config
	rng *quant.RNG

	pending       float64
	lastSign      float64
	stickyTicks   int
	stickyCeiling int
	releaseMult   float64
	ignition      *ignition
	hunt          *stopHunt
	sessionHigh   quant.Price
	sessionLow    quant.Price
}

// NewEngine creates an engine anchored at the session's open price.
func NewEngine(cfg Config, rng *quant.RNG, open quant.Price) *Engine {
	e := &Engine{cfg: cfg, rng: rng}
	e.Reset(open)
	return e
}

// Reset discards all state and anchors the session extremes at open.
func (e *Engine) Reset(open quant.Price) {
	e.pending = 0
	e.lastSign = 0
	e.ignition = nil
	e.hunt = nil
	e.sessionHigh = open
	e.sessionLow = open
	e.rollRelease(domain.VolNormal)
}

// SessionRange returns the session high and low seen so far.
func (e *Engine) SessionRange() (high, low quant.Price) {
	return e.sessionHigh, e.sessionLow
}

// IgnitionActive reports whether a momentum burst is running.
func (e *Engine) IgnitionActive() bool {
	return e.ignition != nil
}

// StopHuntPhase reports the current stop-hunt phase.
func (e *Engine) StopHuntPhase() Phase {
	if e.hunt == nil {
		return PhaseNone
	}
	return e.hunt.phase
}

// Step composes the forces of one tick and returns the new price.
func (e *Engine) Step(in Input) Result {
	price := in.Price.Float()

	ignitionForce := e.stepIgnition(in, price)
	huntForce := e.stepStopHunt(in, price)
	roundForce := e.roundAttraction(price, in.DT)
	total := in.MacroForce + ignitionForce + huntForce + roundForce

	forced := e.ignition != nil || e.hunt != nil || ignitionForce != 0 || huntForce != 0
	released := e.accumulate(total, in, forced)

	res := Result{
		Price:          in.Price,
		IgnitionActive: e.ignition != nil,
		StopHunt:       e.StopHuntPhase(),
		Released:       released.ok,
	}
	if released.ok {
		res.Price = quant.RoundPrice(price + released.amount)
	}
	res.Changed = res.Price != in.Price
	res.BreakawayBoost = e.breakaway(in.Price, res.Price)
	res.High, res.Low = e.wick(res.Price, float64(res.Price-in.Price))

	if res.Price > e.sessionHigh {
		e.sessionHigh = res.Price
	}
	if res.Price < e.sessionLow {
		e.sessionLow = res.Price
	}
	return res
}

func (e *Engine) stepIgnition(in Input, price float64) float64 {
	if e.ignition == nil {
		if in.Extreme {
			return 0
		}
		mult := e.cfg.IgnitionVolMult[in.VolState]
		if !e.rng.Chance(quant.ScaleProb(e.cfg.IgnitionProb*mult, in.DT)) {
			return 0
		}
		ticks := e.rng.IntRange(e.cfg.IgnitionTicks.Min, e.cfg.IgnitionTicks.Max)
		e.ignition = &ignition{
			direction:      e.biasedDirection(in.Momentum),
			remaining:      float64(ticks) * domain.ReferenceTickMin,
			forcePerMinute: e.rng.Uniform(e.cfg.IgnitionForceMin, e.cfg.IgnitionForceMax),
		}
	}

	ig := e.ignition
	jitter := e.rng.Uniform(e.cfg.JitterMin, e.cfg.JitterMax)
	force := ig.direction * ig.forcePerMinute * price * in.Minutes * jitter
	ig.remaining -= in.Minutes
	if ig.remaining <= 0 {
		e.ignition = nil
	}
	return force
}

func (e *Engine) biasedDirection(momentum float64) float64 {
	if momentum == 0 {
		return e.rng.Sign()
	}
	sign := math.Copysign(1, momentum)
	if e.rng.Chance(e.cfg.IgnitionMomentumBias) {
		return sign
	}
	return -sign
}

func (e *Engine) stepStopHunt(in Input, price float64) float64 {
	if e.hunt == nil {
		dir := e.nearExtreme(price)
		if dir == 0 || !e.rng.Chance(quant.ScaleProb(e.cfg.StopHuntProb, in.DT)) {
			return 0
		}
		e.hunt = &stopHunt{
			phase:          PhasePierce,
			direction:      dir,
			remaining:      float64(e.rng.IntRange(e.cfg.PierceTicks.Min, e.cfg.PierceTicks.Max)) * domain.ReferenceTickMin,
			forcePerMinute: e.cfg.PierceForce,
		}
	}

	h := e.hunt
	force := h.direction * h.forcePerMinute * price * in.Minutes
	h.remaining -= in.Minutes
	if h.remaining <= 0 {
		if h.phase == PhasePierce {
			h.phase = PhaseReversal
			h.direction = -h.direction
			h.remaining = float64(e.rng.IntRange(e.cfg.ReversalTicks.Min, e.cfg.ReversalTicks.Max)) * domain.ReferenceTickMin
			h.forcePerMinute = e.cfg.ReversalForce
		} else {
			e.hunt = nil
		}
	}
	return force
}

// nearExtreme returns +1 near the session high, -1 near the low, else 0.
func (e *Engine) nearExtreme(price float64) float64 {
	hi, lo := e.sessionHigh.Float(), e.sessionLow.Float()
	if price <= 0 || (hi-lo)/price < e.cfg.StopHuntMinRange {
		return 0
	}
	switch {
	case (hi-price)/price <= e.cfg.StopHuntZone:
		return 1
	case (price-lo)/price <= e.cfg.StopHuntZone:
		return -1
	}
	return 0
}

func (e *Engine) roundAttraction(price, dt float64) float64 {
	unit := quant.TickUnit(price)
	force := 0.0
	for _, lvl := range e.cfg.RoundLevels {
		spacing := lvl.Ticks * unit
		nearest := math.Round(price/spacing) * spacing
		dist := nearest - price
		if dist == 0 {
			continue
		}
		proximity := math.Abs(dist) / price
		if proximity >= lvl.Zone {
			continue
		}
		pull := (1 - proximity/lvl.Zone) * lvl.Strength * dt * price
		force += math.Copysign(math.Min(pull, math.Abs(dist)), dist)
	}
	return force
}

// breakaway checks the largest round scale first and returns a boost in
// the crossing direction for the first scale whose neighbourhood changed.
func (e *Engine) breakaway(before, after quant.Price) float64 {
	if before == after {
		return 0
	}
	b, a := before.Float(), after.Float()
	unit := quant.TickUnit(b)
	for i := len(e.cfg.RoundLevels) - 1; i >= 0; i-- {
		lvl := e.cfg.RoundLevels[i]
		spacing := lvl.Ticks * unit
		if math.Floor(b/spacing) != math.Floor(a/spacing) {
			return math.Copysign(lvl.Breakaway*b, a-b)
		}
	}
	return 0
}

type release struct {
	ok     bool
	amount float64
}

func (e *Engine) accumulate(force float64, in Input, forced bool) release {
	unit := quant.TickUnit(in.Price.Float())
	limit := unit * e.cfg.MaxAccumulationMult

	prevSign := e.lastSign
	e.pending = math.Max(-limit, math.Min(limit, e.pending+force))
	e.stickyTicks++

	sign := 0.0
	if e.pending != 0 {
		sign = math.Copysign(1, e.pending)
	}
	e.lastSign = sign

	flipped := prevSign != 0 && sign != 0 && sign != prevSign
	if !forced && !flipped &&
		math.Abs(e.pending) < unit*e.releaseMult &&
		e.stickyTicks < e.stickyCeiling {
		return release{}
	}

	out := release{ok: true, amount: e.pending}
	e.pending = 0
	e.lastSign = 0
	e.rollRelease(in.VolState)
	return out
}

func (e *Engine) rollRelease(v domain.VolatilityState) {
	e.stickyTicks = 0
	e.releaseMult = e.rng.Uniform(e.cfg.ReleaseMultMin, e.cfg.ReleaseMultMax)
	r, ok := e.cfg.MaxStickyTicks[v]
	if !ok {
		r = e.cfg.MaxStickyTicks[domain.VolNormal]
	}
	e.stickyCeiling = e.rng.IntRange(r.Min, r.Max)
}

// wick returns a symmetric intra-tick high/low at least one tick away
// from price on each side.
func (e *Engine) wick(p quant.Price, change float64) (high, low quant.Price) {
	price := p.Float()
	unit := quant.TickUnit(price)
	w := math.Max(unit, math.Abs(change)*e.rng.Uniform(e.cfg.WickMin, e.cfg.WickMax))
	w = math.Max(unit, math.Round(w/unit)*unit)

	high = quant.Price(quant.CeilToTick(price + w))
	low = quant.Price(quant.FloorToTick(price - w))
	if low < quant.MinPrice {
		low = quant.MinPrice
	}
	if low > p {
		low = p
	}
	return high, low
}
