package quant

import (
	"math"
	"testing"
)

func TestTickUnit(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{10, 1},
		{3000, 1},
		{3001, 5},
		{5000, 5},
		{5001, 10},
		{30000, 10},
		{30001, 50},
		{50000, 50},
		{99999, 100},
		{100000, 100},
		{300000, 500},
		{300001, 1000},
		{-29993, 10},
	}

	for _, tt := range tests {
		if got := TickUnit(tt.price); got != tt.want {
			t.Errorf("TickUnit(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestRounding(t *testing.T) {
	t.Run("round is symmetric", func(t *testing.T) {
		for _, x := range []float64{0.4, 0.5, 7.5, 2999.5, 29995, 45025} {
			if RoundToTick(-x) != -RoundToTick(x) {
				t.Errorf("RoundToTick(-%v) = %v, want %v", x, RoundToTick(-x), -RoundToTick(x))
			}
		}
	})

	t.Run("floor and ceil", func(t *testing.T) {
		if got := FloorToTick(29993); got != 29990 {
			t.Errorf("Expected 29990, got %v", got)
		}
		if got := CeilToTick(29993); got != 30000 {
			t.Errorf("Expected 30000, got %v", got)
		}
		if got := FloorToTick(30001); got != 30000 {
			t.Errorf("Expected 30000, got %v", got)
		}
		if got := CeilToTick(4996); got != 5000 {
			t.Errorf("Expected 5000, got %v", got)
		}
	})

	t.Run("floor and ceil price", func(t *testing.T) {
		tests := []struct {
			x           float64
			floor, ceil Price
		}{
			{31542, 31500, 31550},
			{28538, 28530, 28540},
			{4996, 4995, 5000},
			{30000, 30000, 30000},
			{3, MinPrice, MinPrice},
			{-50, MinPrice, MinPrice},
		}
		for _, tt := range tests {
			if got := FloorPrice(tt.x); got != tt.floor {
				t.Errorf("FloorPrice(%v) = %v, want %v", tt.x, got, tt.floor)
			}
			if got := CeilPrice(tt.x); got != tt.ceil {
				t.Errorf("CeilPrice(%v) = %v, want %v", tt.x, got, tt.ceil)
			}
		}
	})

	t.Run("round price floors at minimum", func(t *testing.T) {
		for _, x := range []float64{-100, 0, 3, 9.4, math.NaN()} {
			if got := RoundPrice(x); got != MinPrice {
				t.Errorf("RoundPrice(%v) = %v, want %v", x, got, MinPrice)
			}
		}
	})
}

func TestRoundPrice_OnGrid(t *testing.T) {
	for x := 0.0; x < 400000; x += 7.3 {
		p := RoundPrice(x)
		if !OnGrid(p) {
			t.Fatalf("RoundPrice(%v) = %v is off grid (unit %v)", x, p, TickUnitOf(p))
		}
		if p < MinPrice {
			t.Fatalf("RoundPrice(%v) = %v below minimum", x, p)
		}
	}
}

func FuzzRoundPrice(f *testing.F) {
	f.Add(0.0)
	f.Add(9.99)
	f.Add(2999.5)
	f.Add(30024.9)
	f.Add(299750.0)
	f.Add(1e12)

	f.Fuzz(func(t *testing.T, x float64) {
		if math.IsInf(x, 0) || math.Abs(x) > 1e15 {
			return
		}
		p := RoundPrice(x)
		if p < MinPrice || !OnGrid(p) {
			t.Errorf("RoundPrice(%v) = %v violates grid", x, p)
		}
	})
}
