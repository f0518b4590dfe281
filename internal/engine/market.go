package engine

import (
	"fmt"
	"math"
	"time"

	"market_sim/internal/domain"
	"market_sim/internal/microstructure"
	"market_sim/internal/volume"
	"market_sim/pkg/quant"
)

// State is the lifecycle of one trading session.
type State uint8

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateLunchBreak
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateLunchBreak:
		return "lunch_break"
	case StateEnded:
		return "ended"
	default:
		return "stopped"
	}
}

// Bias is the macro drift and volatility input for a session, taken from
// the regime and the calendar anomaly.
type Bias struct {
	Drift       float64 // fraction of price per reference tick
	VolMult     float64
	AnomalyVol  float64
	AnomalyBias float64 // extra drift, fraction of price per reference tick
}

// StepResult is the outcome of one Advance.
type StepResult struct {
	Tick         *domain.Tick
	LunchStarted bool
	SessionEnded bool
}

// Status is a copy of the engine's observable state.
type Status struct {
	State    State                  `json:"state"`
	Speed    float64                `json:"speed"`
	Minute   float64                `json:"minute"`
	Price    quant.Price            `json:"price"`
	Open     quant.Price            `json:"open"`
	VolState domain.VolatilityState `json:"vol_state"`
	Bias     Bias                   `json:"bias"`
	External float64                `json:"external"`
	Momentum float64                `json:"momentum"`
	Ticks    int64                  `json:"ticks"`
	LastTick domain.Tick            `json:"last_tick"`
}

// MarketEngine is the tick clock and macro price process of one session.
// It is owned by a single goroutine (see Driver); no method is safe for
// concurrent use.
type MarketEngine struct {
	cfg   Config
	rng   *quant.RNG
	clock func() time.Time
	micro *microstructure.Engine
	vol   *volume.Model

	state    State
	speed    float64
	now      float64
	price    quant.Price
	open     quant.Price
	volState domain.VolatilityState
	bias     Bias
	external float64
	momentum float64
	lastReal time.Time
	lastTick domain.Tick
	ticks    int64

	// Speed-scaled real seconds not yet converted into simulated time.
	carried float64

	algoVolume float64
	algoTicks  int
}

// NewMarketEngine creates an engine. clock is time.Now outside tests.
func NewMarketEngine(cfg Config, rng *quant.RNG, clock func() time.Time) *MarketEngine {
	if clock == nil {
		clock = time.Now
	}
	return &MarketEngine{
		cfg:   cfg,
		rng:   rng,
		clock: clock,
		micro: microstructure.NewEngine(cfg.Micro, rng, quant.MinPrice),
		vol:   volume.NewModel(cfg.Volume, rng),
		speed: 1,
		now:   domain.SessionOpen,
		bias:  Bias{VolMult: 1, AnomalyVol: 1},
	}
}

// OpenSession resets the engine to 09:00 at open, stopped.
func (e *MarketEngine) OpenSession(open quant.Price, bias Bias) {
	open = quant.RoundPrice(open.Float())
	if bias.VolMult == 0 {
		bias.VolMult = 1
	}
	if bias.AnomalyVol == 0 {
		bias.AnomalyVol = 1
	}
	e.state = StateStopped
	e.now = domain.SessionOpen
	e.price = open
	e.open = open
	e.volState = domain.ZoneOpen.NaturalVolatility()
	e.bias = bias
	e.external = 0
	e.momentum = 0
	e.algoTicks = 0
	e.ticks = 0
	e.carried = 0
	e.lastTick = domain.Tick{
		Price: open, High: open, Low: open,
		Timestamp: e.now, VolState: e.volState, Zone: domain.ZoneOpen,
	}
	e.micro.Reset(open)
}

// Start begins ticking from a stopped session.
func (e *MarketEngine) Start() error {
	if e.state != StateStopped || e.now >= domain.SessionClose {
		return fmt.Errorf("start from %s: %w", e.state, domain.ErrEngineState)
	}
	e.state = StateRunning
	e.lastReal = e.clock()
	return nil
}

// Pause suspends ticking. Wall time spent paused is never simulated.
func (e *MarketEngine) Pause() error {
	if e.state != StateRunning {
		return fmt.Errorf("pause from %s: %w", e.state, domain.ErrEngineState)
	}
	e.carry()
	e.state = StatePaused
	return nil
}

// Resume re-anchors the real-time reference and continues.
func (e *MarketEngine) Resume() error {
	if e.state != StatePaused {
		return fmt.Errorf("resume from %s: %w", e.state, domain.ErrEngineState)
	}
	e.state = StateRunning
	e.lastReal = e.clock()
	return nil
}

// ResumeFromLunch continues the session after the lunch callback.
func (e *MarketEngine) ResumeFromLunch() error {
	if e.state != StateLunchBreak {
		return fmt.Errorf("resume lunch from %s: %w", e.state, domain.ErrEngineState)
	}
	e.state = StateRunning
	e.lastReal = e.clock()
	return nil
}

// Stop halts the session without emitting a session-end tick.
func (e *MarketEngine) Stop() {
	if e.state != StateEnded {
		e.state = StateStopped
	}
}

// SetSpeed changes the simulation speed multiplier.
func (e *MarketEngine) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("speed %v: %w", speed, domain.ErrEngineState)
	}
	if e.state == StateRunning {
		e.carry()
	}
	e.speed = speed
	return nil
}

// carry banks the real time since the last tick at the current speed and
// re-anchors the clock, so a speed change or pause never rescales or
// drops time that already elapsed.
func (e *MarketEngine) carry() {
	now := e.clock()
	e.carried += now.Sub(e.lastReal).Seconds() * e.speed
	e.lastReal = now
}

// InjectExternalForce adds a force in price units. The amount is the total
// impulse: each step moves price by the share that decays away in that
// step, so the sum over the following ticks approaches force.
func (e *MarketEngine) InjectExternalForce(force float64) {
	e.external += force
}

// SetAlgoVolume overrides the volume chain for the next n ticks.
func (e *MarketEngine) SetAlgoVolume(v float64, n int) {
	e.algoVolume = v
	e.algoTicks = n
}

// SetBias replaces the macro bias mid-session. It applies from the next
// Advance on; zero multipliers mean 1.
func (e *MarketEngine) SetBias(b Bias) {
	if b.VolMult == 0 {
		b.VolMult = 1
	}
	if b.AnomalyVol == 0 {
		b.AnomalyVol = 1
	}
	e.bias = b
}

// State returns the lifecycle state.
func (e *MarketEngine) State() State { return e.state }

// Price returns the last emitted price.
func (e *MarketEngine) Price() quant.Price { return e.price }

// Now returns simulated minutes of day.
func (e *MarketEngine) Now() float64 { return e.now }

// Speed returns the speed multiplier.
func (e *MarketEngine) Speed() float64 { return e.speed }

// SessionRange returns the session high and low.
func (e *MarketEngine) SessionRange() (high, low quant.Price) {
	return e.micro.SessionRange()
}

// Status returns a copy of the observable state.
func (e *MarketEngine) Status() Status {
	return Status{
		State:    e.state,
		Speed:    e.speed,
		Minute:   e.now,
		Price:    e.price,
		Open:     e.open,
		VolState: e.volState,
		Bias:     e.bias,
		External: e.external,
		Momentum: e.momentum,
		Ticks:    e.ticks,
		LastTick: e.lastTick,
	}
}

// NextInterval draws the real-time gap to the next tick.
func (e *MarketEngine) NextInterval() time.Duration {
	d, ok := e.cfg.Intervals[e.volState]
	if !ok {
		d = e.cfg.Intervals[domain.VolNormal]
	}
	ms := e.rng.Normal(float64(d.Mean), float64(d.SD))
	ms = math.Max(ms, float64(e.cfg.MinInterval))
	return time.Duration(ms / e.speed)
}

// Tick advances by the real time elapsed since the previous tick.
func (e *MarketEngine) Tick() StepResult {
	if e.state != StateRunning {
		return StepResult{}
	}
	now := e.clock()
	delta := now.Sub(e.lastReal)
	e.lastReal = now
	return e.Advance(delta)
}

// Advance is the pure step: it converts a real-time delta into simulated
// minutes and produces at most one tick.
func (e *MarketEngine) Advance(delta time.Duration) StepResult {
	if e.state != StateRunning {
		return StepResult{}
	}

	inLunch := domain.ZoneAt(e.now) == domain.ZoneLunch
	rate := e.cfg.NormalRate
	if inLunch {
		rate = e.cfg.LunchRate
	}
	simSeconds := delta.Seconds()*e.speed + e.carried
	e.carried = 0
	minutes := simSeconds * rate
	if minutes <= 0 {
		return StepResult{}
	}

	target := e.now + minutes
	if inLunch && target > domain.AfternoonStart {
		// Time past 13:00 runs at the normal rate.
		target = domain.AfternoonStart + (target-domain.AfternoonStart)*e.cfg.NormalRate/rate
		minutes = target - e.now
	}
	if target >= domain.SessionClose {
		return e.closeSession()
	}

	lunch := e.now < domain.LunchStart && target >= domain.LunchStart
	if lunch {
		target = domain.LunchStart
		minutes = target - e.now
	}
	dt := minutes / domain.ReferenceTickMin
	e.now = target
	zone := domain.ZoneAt(e.now)

	e.transitionVolatility(zone, dt)
	change, extreme, shocks := e.macroChange(zone, dt)

	before := e.price
	res := e.micro.Step(microstructure.Input{
		Price:      before,
		MacroForce: change,
		Momentum:   e.momentum,
		Minutes:    minutes,
		DT:         dt,
		VolState:   e.volState,
		Extreme:    extreme,
	})
	e.updateMomentum(shocks, res.BreakawayBoost, dt)
	e.price = res.Price

	tick := domain.Tick{
		Price:     res.Price,
		High:      res.High,
		Low:       res.Low,
		Volume:    e.volume(zone, before, res),
		Timestamp: e.now,
		VolState:  e.volState,
		Zone:      zone,
	}
	e.emit(tick)

	out := StepResult{Tick: &tick}
	if lunch {
		e.state = StateLunchBreak
		out.LunchStarted = true
	}
	return out
}

// closeSession clamps to 15:30 and emits the terminal tick with no wick.
func (e *MarketEngine) closeSession() StepResult {
	e.now = domain.SessionClose
	tick := domain.Tick{
		Price:     e.price,
		High:      e.price,
		Low:       e.price,
		Volume:    e.vol.Generate(volume.Context{VolState: e.volState, Zone: domain.ZoneClose, Price: e.price.Float()}),
		Timestamp: e.now,
		VolState:  e.volState,
		Zone:      domain.ZoneClose,
	}
	e.emit(tick)
	e.state = StateEnded
	return StepResult{Tick: &tick, SessionEnded: true}
}

func (e *MarketEngine) emit(t domain.Tick) {
	e.lastTick = t
	e.ticks++
}

func (e *MarketEngine) volume(zone domain.TimeZone, before quant.Price, res microstructure.Result) int64 {
	ctx := volume.Context{
		VolState:       e.volState,
		Zone:           zone,
		Price:          res.Price.Float(),
		PriceChange:    float64(res.Price - before),
		PriceChanged:   res.Changed,
		IgnitionActive: res.IgnitionActive,
	}
	if e.algoTicks > 0 {
		ctx.AlgoOverride = e.algoVolume
		e.algoTicks--
	}
	return e.vol.Generate(ctx)
}

// transitionVolatility takes one dt-scaled step of the 3-state chain.
// Moves toward the zone's natural state are weighted up, moves away from
// it are weighted down.
func (e *MarketEngine) transitionVolatility(zone domain.TimeZone, dt float64) {
	natural := zone.NaturalVolatility()
	from := volIndex(e.volState)

	var weights [3]float64
	leave := 0.0
	for j, to := range domain.VolatilityStates {
		if j == from {
			continue
		}
		w := e.cfg.VolTransition[from][j]
		switch {
		case to == natural:
			w *= e.cfg.TowardBias
		case e.volState == natural:
			w *= e.cfg.AwayBias
		}
		weights[j] = w
		leave += w
	}
	if leave <= 0 {
		return
	}
	if !e.rng.Chance(quant.ScaleProb(math.Min(leave, 1), dt)) {
		return
	}
	e.volState = domain.VolatilityStates[e.rng.Pick(weights[:])]
}

func volIndex(v domain.VolatilityState) int {
	for i, s := range domain.VolatilityStates {
		if s == v {
			return i
		}
	}
	return 1
}

// macroShocks are the stochastic terms that feed momentum.
type macroShocks struct {
	shock, fatTail, external float64
}

func (e *MarketEngine) macroChange(zone domain.TimeZone, dt float64) (float64, bool, macroShocks) {
	p := e.price.Float()
	tod := e.cfg.TimeOfDayVol[zone]
	if tod == 0 {
		tod = 1
	}
	sd := e.cfg.BaseShockSD * p * e.bias.VolMult * e.bias.AnomalyVol * tod

	drift := quant.ScaleLinear((e.bias.Drift+e.bias.AnomalyBias)*p, dt)
	var s macroShocks
	// Diffusion scales with sqrt(dt) so variance is additive in time.
	s.shock = e.rng.Gaussian() * sd * math.Sqrt(dt)

	extreme := false
	if e.rng.Chance(quant.ScaleProb(e.cfg.FatTailProb, dt)) {
		s.fatTail = e.rng.Sign() * e.rng.Uniform(e.cfg.FatTailMin, e.cfg.FatTailMax) * sd
		extreme = true
	}

	if e.external != 0 {
		if math.Abs(e.external) > e.cfg.ExtremeShockSDs*sd {
			extreme = true
		}
		retain := quant.ScaleDecay(e.cfg.ExternalDecay, dt)
		s.external = e.external * (1 - retain)
		e.external *= retain
		if math.Abs(e.external) < e.cfg.ExternalSnapUnits*quant.TickUnit(p) {
			e.external = 0
		}
	}

	momentum := quant.ScaleLinear(e.momentum*e.cfg.MomentumWeight, dt)
	return drift + s.shock + s.fatTail + s.external + momentum, extreme, s
}

func (e *MarketEngine) updateMomentum(s macroShocks, boost, dt float64) {
	m := e.momentum*quant.ScaleDecay(e.cfg.MomentumDecay, dt) +
		e.cfg.MomentumAlpha*(s.shock+s.fatTail+s.external) + boost
	limit := e.cfg.MaxMomentum * e.price.Float()
	e.momentum = math.Max(-limit, math.Min(limit, m))
}
