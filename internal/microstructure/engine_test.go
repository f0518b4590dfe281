package microstructure

import (
	"math"
	"testing"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
)

// quietConfig disables every effect except sticky accumulation.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.IgnitionProb = 0
	cfg.StopHuntProb = 0
	cfg.RoundLevels = nil
	return cfg
}

func stepInput(price quant.Price, force float64) Input {
	return Input{
		Price:      price,
		MacroForce: force,
		Minutes:    domain.ReferenceTickMin,
		DT:         1,
		VolState:   domain.VolNormal,
	}
}

func TestEngine_TicksStayOnGrid(t *testing.T) {
	rng := quant.NewRNG(21)
	e := NewEngine(DefaultConfig(), rng, 30000)
	price := quant.Price(30000)

	for i := 0; i < 20000; i++ {
		force := rng.Normal(0, 40)
		res := e.Step(stepInput(price, force))
		for _, p := range []quant.Price{res.Price, res.High, res.Low} {
			if !quant.OnGrid(p) || p < quant.MinPrice {
				t.Fatalf("Tick %d: %v off grid (unit %v)", i, p, quant.TickUnitOf(p))
			}
		}
		if !(res.High >= res.Price && res.Price >= res.Low) {
			t.Fatalf("Tick %d: expected high >= price >= low, got %v/%v/%v", i, res.High, res.Price, res.Low)
		}
		diff := (res.High - res.Price) - (res.Price - res.Low)
		if diff < 0 {
			diff = -diff
		}
		if diff >= quant.TickUnitOf(res.High) {
			t.Fatalf("Tick %d: wick asymmetry %v beyond one unit", i, diff)
		}
		price = res.Price
	}
}

func TestEngine_StickyCeiling(t *testing.T) {
	cfg := quietConfig()
	e := NewEngine(cfg, quant.NewRNG(4), 30000)
	ceiling := cfg.MaxStickyTicks[domain.VolNormal].Max

	sinceRelease := 0
	for i := 0; i < 5000; i++ {
		res := e.Step(stepInput(30000, 0.05))
		sinceRelease++
		if res.Released {
			if sinceRelease > ceiling {
				t.Fatalf("Release after %d ticks exceeds ceiling %d", sinceRelease, ceiling)
			}
			sinceRelease = 0
		}
	}
}

func TestEngine_PendingBounded(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxStickyTicks[domain.VolNormal] = TickRange{50, 50}
	cfg.ReleaseMultMin, cfg.ReleaseMultMax = 100, 100
	e := NewEngine(cfg, quant.NewRNG(8), 30000)
	unit := quant.TickUnit(30000)

	for i := 0; i < 40; i++ {
		e.Step(stepInput(30000, 7*unit))
		if math.Abs(e.pending) > unit*cfg.MaxAccumulationMult+unit {
			t.Fatalf("Pending %v exceeds bound", e.pending)
		}
	}
}

func TestEngine_SignFlipReleases(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxStickyTicks[domain.VolNormal] = TickRange{50, 50}
	cfg.ReleaseMultMin, cfg.ReleaseMultMax = 100, 100
	e := NewEngine(cfg, quant.NewRNG(8), 30000)

	if res := e.Step(stepInput(30000, 4)); res.Released {
		t.Fatal("First small push should not release")
	}
	if res := e.Step(stepInput(30000, -9)); !res.Released {
		t.Error("Pressure sign flip should release")
	}
}

func TestEngine_StopHuntTwoPhases(t *testing.T) {
	cfg := quietConfig()
	cfg.StopHuntProb = 1
	e := NewEngine(cfg, quant.NewRNG(3), 30000)
	e.sessionHigh, e.sessionLow = 30300, 29500

	var phases []Phase
	for i := 0; i < 40; i++ {
		e.Step(stepInput(30280, 0))
		ph := e.StopHuntPhase()
		if len(phases) == 0 || phases[len(phases)-1] != ph {
			phases = append(phases, ph)
		}
		if len(phases) >= 3 {
			break
		}
	}
	want := []Phase{PhasePierce, PhaseReversal, PhaseNone}
	if len(phases) < 3 {
		t.Fatalf("Expected full sequence, got %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, phases)
		}
	}
}

func TestEngine_StopHuntDirection(t *testing.T) {
	cfg := quietConfig()
	cfg.StopHuntProb = 1
	e := NewEngine(cfg, quant.NewRNG(3), 30000)
	e.sessionHigh, e.sessionLow = 30300, 29500

	e.Step(stepInput(29510, 0))
	if e.hunt == nil || e.hunt.direction != -1 {
		t.Fatal("Expected a downward pierce near the session low")
	}
}

func TestEngine_IgnitionSuppressedByExtreme(t *testing.T) {
	cfg := quietConfig()
	cfg.IgnitionProb = 1
	e := NewEngine(cfg, quant.NewRNG(5), 30000)

	in := stepInput(30000, 0)
	in.Extreme = true
	if res := e.Step(in); res.IgnitionActive {
		t.Error("Extreme flag should suppress ignition")
	}
	in.Extreme = false
	if res := e.Step(in); !res.IgnitionActive {
		t.Error("Expected ignition to fire with probability 1")
	}
}

func TestEngine_IgnitionMomentumBias(t *testing.T) {
	cfg := quietConfig()
	cfg.IgnitionProb = 1
	rng := quant.NewRNG(6)

	with := 0
	const n = 4000
	for i := 0; i < n; i++ {
		e := NewEngine(cfg, rng, 30000)
		in := stepInput(30000, 0)
		in.Momentum = 5
		e.Step(in)
		if e.ignition != nil && e.ignition.direction > 0 {
			with++
		}
	}
	got := float64(with) / n
	if math.Abs(got-0.6) > 0.04 {
		t.Errorf("Expected ~60%% momentum-aligned ignitions, got %v", got)
	}
}

func TestEngine_IgnitionExpires(t *testing.T) {
	cfg := quietConfig()
	cfg.IgnitionProb = 1
	cfg.IgnitionTicks = TickRange{2, 2}
	e := NewEngine(cfg, quant.NewRNG(1), 30000)

	e.Step(stepInput(30000, 0))
	if !e.IgnitionActive() {
		t.Fatal("Expected active ignition")
	}
	e.cfg.IgnitionProb = 0
	e.Step(stepInput(30000, 0))
	if e.IgnitionActive() {
		t.Error("Ignition should expire after its duration")
	}
}

func TestEngine_RoundAttraction(t *testing.T) {
	e := NewEngine(DefaultConfig(), quant.NewRNG(1), 30000)

	if f := e.roundAttraction(29990, 1); f <= 0 {
		t.Errorf("Expected upward pull toward 30000, got %v", f)
	}
	if f := e.roundAttraction(30010, 1); f >= 0 {
		t.Errorf("Expected downward pull toward 30000, got %v", f)
	}
	if f := e.roundAttraction(30000, 1); f != 0 {
		t.Errorf("Expected no pull on the level, got %v", f)
	}
	if f := e.roundAttraction(29990, 1); f > 10*3 {
		t.Errorf("Pull should not overshoot the levels, got %v", f)
	}
}

func TestEngine_Breakaway(t *testing.T) {
	e := NewEngine(DefaultConfig(), quant.NewRNG(1), 30000)

	up := e.breakaway(29990, 30010)
	if math.Abs(up-0.0004*29990) > 1e-9 {
		t.Errorf("Expected largest-scale boost %v, got %v", 0.0004*29990, up)
	}
	down := e.breakaway(30010, 29990)
	if down >= 0 {
		t.Errorf("Expected negative boost on downside break, got %v", down)
	}
	if got := e.breakaway(30010, 30020); got != 0 {
		t.Errorf("Expected no boost inside a neighbourhood, got %v", got)
	}
}

func BenchmarkEngine_Step(b *testing.B) {
	rng := quant.NewRNG(1)
	e := NewEngine(DefaultConfig(), rng, 30000)
	price := quant.Price(30000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		price = e.Step(stepInput(price, rng.Normal(0, 30))).Price
	}
}
