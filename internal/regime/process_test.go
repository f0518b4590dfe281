package regime

import (
	"math"
	"testing"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
)

func newTestProcess(seed uint64) *Process {
	return NewProcess(DefaultConfig(), quant.NewRNG(seed), quant.NewRNG(seed+1000))
}

func TestDefaultConfig_RowStochastic(t *testing.T) {
	cfg := DefaultConfig()
	for i, row := range cfg.Transition {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Row %s sums to %v", domain.Regimes[i], sum)
		}
	}
}

func TestProcess_AdvanceQuarter(t *testing.T) {
	p := newTestProcess(1)
	first := p.InitFirstQuarter()
	if p.Quarter() != 1 || p.Current() != first {
		t.Fatalf("Expected quarter 1 with %s, got %d/%s", first, p.Quarter(), p.Current())
	}

	for i := 0; i < 20; i++ {
		p.AdvanceQuarter()
	}
	s := p.Snapshot()
	if s.CurrentQuarter != 21 || len(s.History) != 21 {
		t.Errorf("Expected 21 quarters of history, got %d/%d", s.CurrentQuarter, len(s.History))
	}
	if s.History[20].Regime != p.Current() {
		t.Error("Last history entry should match the current regime")
	}
}

func TestProcess_TransitionFollowsMatrix(t *testing.T) {
	// From crash the matrix never goes straight to bubble.
	p := newTestProcess(9)
	p.InitFirstQuarter()
	for i := 0; i < 500; i++ {
		if err := p.Restore(State{CurrentRegime: domain.RegimeCrash, CurrentQuarter: 1}); err != nil {
			t.Fatal(err)
		}
		if got := p.AdvanceQuarter(); got == domain.RegimeBubble {
			t.Fatal("crash -> bubble has zero probability")
		}
	}
}

func TestProcess_PreviewDoesNotMutate(t *testing.T) {
	a := newTestProcess(5)
	b := newTestProcess(5)
	a.InitFirstQuarter()
	b.InitFirstQuarter()

	before := a.Snapshot()
	preview := a.PreviewYear()
	if len(preview) != 4 {
		t.Fatalf("Expected 4 preview quarters, got %d", len(preview))
	}
	after := a.Snapshot()
	if before.CurrentRegime != after.CurrentRegime || before.CurrentQuarter != after.CurrentQuarter {
		t.Error("Preview must not change state")
	}

	// The previewing process must follow the same real path as one that never previewed.
	for i := 0; i < 12; i++ {
		if a.AdvanceQuarter() != b.AdvanceQuarter() {
			t.Fatalf("Preview perturbed the main RNG stream at quarter %d", i+2)
		}
	}
}

func TestProcess_DailyConditionAccuracy(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{1, 0.50},
		{3, 0.65},
		{5, 0.80},
	}
	for _, tt := range tests {
		p := newTestProcess(uint64(tt.level))
		p.InitFirstQuarter()
		const n = 20000
		accurate := 0
		for i := 0; i < n; i++ {
			c := p.GenerateDailyCondition(tt.level)
			if c.IsAccurate != (c.DisplaySentiment == c.ActualSentiment) {
				t.Fatal("IsAccurate must match display == actual")
			}
			if c.ActualStrength < 0 || c.ActualStrength > 1 {
				t.Fatalf("Strength out of range: %v", c.ActualStrength)
			}
			if c.IsAccurate {
				accurate++
			}
		}
		got := float64(accurate) / n
		if math.Abs(got-tt.want) > 0.02 {
			t.Errorf("Level %d: expected accuracy ~%v, got %v", tt.level, tt.want, got)
		}
	}
}

func TestProcess_MonthlyAnomaly(t *testing.T) {
	p := newTestProcess(1)

	hidden := p.MonthlyAnomaly(10, 2)
	if hidden.Visible {
		t.Error("Anomaly should be hidden below level 3")
	}
	if hidden.VolBias != 1.25 {
		t.Errorf("Expected October vol bias 1.25, got %v", hidden.VolBias)
	}
	if !p.MonthlyAnomaly(10, 3).Visible {
		t.Error("Anomaly should be visible at level 3")
	}
	if p.MonthlyAnomaly(2, 5).Visible {
		t.Error("Untagged month should never be visible")
	}
	if got := p.MonthlyAnomaly(13, 5); got.VolBias != 1 || got.DriftBias != 0 {
		t.Errorf("Out-of-range month should be neutral, got %+v", got)
	}
}

func TestProcess_Restore(t *testing.T) {
	p := newTestProcess(3)
	p.InitFirstQuarter()
	p.AdvanceQuarter()
	snap := p.Snapshot()

	q := newTestProcess(99)
	if err := q.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if q.Current() != p.Current() || q.Quarter() != 2 {
		t.Errorf("Restored state mismatch: %s/%d", q.Current(), q.Quarter())
	}

	snap.History[0].Regime = domain.RegimeCrash
	if q.Snapshot().History[0].Regime == domain.RegimeCrash && p.Snapshot().History[0].Regime != domain.RegimeCrash {
		t.Error("Restore must copy history")
	}

	if err := q.Restore(State{CurrentRegime: domain.Regime(42)}); err == nil {
		t.Error("Expected error for unknown regime")
	}
}
