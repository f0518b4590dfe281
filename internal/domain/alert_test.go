package domain

import (
	"testing"

	"market_sim/pkg/quant"
)

func TestPriceAlert_CheckCondition(t *testing.T) {
	up := PriceAlert{Target: 31000, Direction: "UP"}
	down := PriceAlert{Target: 29000, Direction: "DOWN"}

	tests := []struct {
		name  string
		alert PriceAlert
		price quant.Price
		want  bool
	}{
		{"UP at target", up, 31000, true},
		{"UP above target", up, 31500, true},
		{"UP below target", up, 30950, false},
		{"DOWN at target", down, 29000, true},
		{"DOWN below target", down, 28000, true},
		{"DOWN above target", down, 29050, false},
		{"unknown direction", PriceAlert{Target: 1, Direction: "SIDEWAYS"}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.alert.CheckCondition(tt.price); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProtectiveAlerts(t *testing.T) {
	sl, tp := quant.Price(29000), quant.Price(32000)

	t.Run("long", func(t *testing.T) {
		p := &Position{Direction: Long, EntryPrice: 30000, StopLoss: &sl, TakeProfit: &tp}
		s, g := ProtectiveAlerts(p)
		if s.Direction != "DOWN" || g.Direction != "UP" {
			t.Errorf("Expected DOWN/UP, got %s/%s", s.Direction, g.Direction)
		}
	})

	t.Run("short", func(t *testing.T) {
		hi, lo := quant.Price(31000), quant.Price(28000)
		p := &Position{Direction: Short, EntryPrice: 30000, StopLoss: &hi, TakeProfit: &lo}
		s, g := ProtectiveAlerts(p)
		if s.Direction != "UP" || g.Direction != "DOWN" {
			t.Errorf("Expected UP/DOWN, got %s/%s", s.Direction, g.Direction)
		}
	})

	t.Run("unset fields", func(t *testing.T) {
		p := &Position{Direction: Long, EntryPrice: 30000}
		s, g := ProtectiveAlerts(p)
		if s != nil || g != nil {
			t.Error("Expected nil alerts when SL/TP are unset")
		}
	})
}
