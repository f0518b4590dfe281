package volume

import (
	"math"
	"testing"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
)

func TestSoftCap(t *testing.T) {
	t.Run("never exceeds cap", func(t *testing.T) {
		for _, raw := range []float64{0, 10, 1e3, 1e5, 1e9} {
			if got := SoftCap(raw, 10000); got > 10000 {
				t.Errorf("SoftCap(%v) = %v exceeds cap", raw, got)
			}
		}
	})

	t.Run("near identity for small values", func(t *testing.T) {
		got := SoftCap(100, 10000)
		if math.Abs(got-100) > 0.1 {
			t.Errorf("Expected ~100, got %v", got)
		}
	})

	t.Run("monotone", func(t *testing.T) {
		prev := -1.0
		for raw := 0.0; raw < 50000; raw += 500 {
			got := SoftCap(raw, 10000)
			if got < prev {
				t.Fatalf("SoftCap not monotone at %v", raw)
			}
			prev = got
		}
	})
}

func TestModel_ChangeMultiplier(t *testing.T) {
	m := NewModel(DefaultConfig(), quant.NewRNG(1))

	if got := m.ChangeMultiplier(30000, 0); got != 1 {
		t.Errorf("Expected 1 for unchanged price, got %v", got)
	}
	if got := m.ChangeMultiplier(30000, 30); got != 2 {
		t.Errorf("Expected 2 for a 0.1%% move, got %v", got)
	}
	if got := m.ChangeMultiplier(30000, -3000); got != 4 {
		t.Errorf("Expected cap 4, got %v", got)
	}
}

func TestModel_Generate(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg, quant.NewRNG(11))

	t.Run("bounded by soft cap", func(t *testing.T) {
		for i := 0; i < 5000; i++ {
			v := m.Generate(Context{
				VolState:       domain.VolHigh,
				Zone:           domain.ZoneOpen,
				Price:          30000,
				PriceChange:    500,
				PriceChanged:   true,
				IgnitionActive: true,
			})
			if v < 1 || float64(v) > cfg.Base[domain.VolHigh]*cfg.SoftCapBaseMul {
				t.Fatalf("Volume %d out of bounds", v)
			}
		}
	})

	t.Run("sticky ticks trade less", func(t *testing.T) {
		var moved, sticky float64
		for i := 0; i < 5000; i++ {
			moved += float64(m.Generate(Context{VolState: domain.VolNormal, Zone: domain.ZoneMorning, Price: 30000, PriceChanged: true}))
			sticky += float64(m.Generate(Context{VolState: domain.VolNormal, Zone: domain.ZoneMorning, Price: 30000}))
		}
		if sticky >= moved {
			t.Errorf("Expected sticky volume below moving volume, got %v vs %v", sticky, moved)
		}
	})

	t.Run("algo override still capped", func(t *testing.T) {
		v := m.Generate(Context{VolState: domain.VolLow, AlgoOverride: 1e9})
		if float64(v) > cfg.Base[domain.VolLow]*cfg.SoftCapBaseMul {
			t.Errorf("Override volume %d escaped the soft cap", v)
		}
		small := m.Generate(Context{VolState: domain.VolLow, AlgoOverride: 250})
		if small < 245 || small > 250 {
			t.Errorf("Expected ~250 for small override, got %d", small)
		}
	})
}
