package session

import (
	"testing"
	"time"

	"market_sim/pkg/quant"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendar(t *testing.T) {
	t.Run("weekend start moves to monday", func(t *testing.T) {
		c := NewCalendar(day(2024, 1, 6)) // Saturday
		if got := c.String(); got != "2024-01-08" {
			t.Errorf("Expected 2024-01-08, got %s", got)
		}
	})

	t.Run("friday advances to monday", func(t *testing.T) {
		c := NewCalendar(day(2024, 1, 5))
		next := c.Advance()
		if next.Weekday() != time.Monday || next.Day() != 8 {
			t.Errorf("Expected Monday 8th, got %s", next.Format(dateLayout))
		}
	})

	t.Run("next does not move", func(t *testing.T) {
		c := NewCalendar(day(2024, 1, 2))
		_ = c.Next()
		if c.String() != "2024-01-02" {
			t.Errorf("Expected 2024-01-02, got %s", c.String())
		}
	})
}

func TestCalendarBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		a, b        time.Time
		sameWeek    bool
		sameQuarter bool
	}{
		{"same week", day(2024, 1, 2), day(2024, 1, 5), true, true},
		{"over weekend", day(2024, 1, 5), day(2024, 1, 8), false, true},
		{"quarter end", day(2024, 3, 29), day(2024, 4, 1), false, false},
		{"year end same iso week", day(2024, 12, 31), day(2025, 1, 2), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameWeek(tt.a, tt.b); got != tt.sameWeek {
				t.Errorf("Expected SameWeek %v, got %v", tt.sameWeek, got)
			}
			if got := SameQuarter(tt.a, tt.b); got != tt.sameQuarter {
				t.Errorf("Expected SameQuarter %v, got %v", tt.sameQuarter, got)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	from, to := monthBounds(day(2024, 2, 14))
	if !from.Equal(day(2024, 2, 1)) {
		t.Errorf("Expected Feb 1, got %s", from)
	}
	if to.Month() != time.February || to.Day() != 29 {
		t.Errorf("Expected Feb 29, got %s", to)
	}
}

func TestOvernightGap(t *testing.T) {
	rng := quant.NewRNG(3)
	cfg := GapConfig{SD: 0.5, MaxPct: 0.05}

	// 30040*1.05 = 31542 would round up to 31550, past the cap.
	for _, prev := range []quant.Price{30000, 30040, 4995} {
		lo, hi := prev.Float()*(1-cfg.MaxPct), prev.Float()*(1+cfg.MaxPct)
		for i := 0; i < 500; i++ {
			open := OvernightGap(rng, prev, 2, cfg)
			if !quant.OnGrid(open) {
				t.Fatalf("Expected open on grid, got %d", open)
			}
			if open.Float() < lo-1e-9 || open.Float() > hi+1e-9 {
				t.Fatalf("prev %d: open %d outside [%.1f, %.1f]", prev, open, lo, hi)
			}
		}
	}

	t.Run("small up gap stays at or above the close", func(t *testing.T) {
		// 30010 is on the 10 grid but the band above it trades in 50s.
		small := GapConfig{SD: 1e-5, MaxPct: 0.05}
		r := quant.NewRNG(5)
		for i := 0; i < 200; i++ {
			open := OvernightGap(r, 30010, 1, small)
			if open != 30010 {
				t.Fatalf("Expected open 30010 for a sub-tick gap, got %d", open)
			}
		}
	})
}
