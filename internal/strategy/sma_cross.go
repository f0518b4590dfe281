package strategy

import (
	"market_sim/internal/domain"
	"market_sim/pkg/safe"
)

// SMACrossConfig parameterises the crossover autopilot.
type SMACrossConfig struct {
	ShortPeriod int
	LongPeriod  int
	Shares      int64
	Leverage    int64
	StopPct     float64 // SL distance as a fraction of entry
	TakePct     float64 // TP distance as a fraction of entry
	Cutoff      float64 // no new positions at or after this minute
}

// SMACrossStrategy flips between long and short on SMA crossovers.
// It is stateful and deterministic.
// Uses a ring buffer so the hot path does not allocate.
type SMACrossStrategy struct {
	cfg SMACrossConfig

	// State (Ring Buffer)
	prices []int64
	head   int   // Current write position
	count  int   // Number of elements filled
	sum    int64 // Running sum for the longest period

	prevShortSMA int64
	prevLongSMA  int64
}

var _ Strategy = (*SMACrossStrategy)(nil)

// NewSMACrossStrategy creates a new instance.
func NewSMACrossStrategy(cfg SMACrossConfig) *SMACrossStrategy {
	if cfg.ShortPeriod < 1 || cfg.ShortPeriod >= cfg.LongPeriod {
		panic("SMACrossStrategy: shortPeriod must be positive and less than longPeriod")
	}
	if cfg.Cutoff == 0 {
		cfg.Cutoff = domain.ClosingAuction
	}
	return &SMACrossStrategy{
		cfg:    cfg,
		prices: make([]int64, cfg.LongPeriod), // Fixed size allocation
	}
}

// Reset clears the price history.
func (s *SMACrossStrategy) Reset() {
	clear(s.prices)
	s.head, s.count, s.sum = 0, 0, 0
	s.prevShortSMA, s.prevLongSMA = 0, 0
}

// OnTick processes a tick and generates signals.
func (s *SMACrossStrategy) OnTick(t domain.Tick, open []domain.Position) []Action {
	currentPrice := int64(t.Price)

	// 1. Update Price History (Ring Buffer)
	// If full, subtract the oldest value from sum before overwriting
	if s.count == s.cfg.LongPeriod {
		s.sum = safe.SafeSub(s.sum, s.prices[s.head])
	}
	s.prices[s.head] = currentPrice
	s.sum = safe.SafeAdd(s.sum, currentPrice)
	s.head = (s.head + 1) % s.cfg.LongPeriod
	if s.count < s.cfg.LongPeriod {
		s.count++
	}

	// 2. Check if we have enough data
	if s.count < s.cfg.LongPeriod {
		return nil
	}

	// 3. Calculate SMAs
	currLongSMA := safe.SafeDiv(s.sum, int64(s.cfg.LongPeriod))
	currShortSMA := s.calculateShortSMA()

	var want domain.Direction
	if s.prevShortSMA != 0 && s.prevLongSMA != 0 {
		switch {
		// Golden Cross: Short goes above Long
		case s.prevShortSMA <= s.prevLongSMA && currShortSMA > currLongSMA:
			want = domain.Long
		// Dead Cross: Short goes below Long
		case s.prevShortSMA >= s.prevLongSMA && currShortSMA < currLongSMA:
			want = domain.Short
		}
	}

	s.prevShortSMA = currShortSMA
	s.prevLongSMA = currLongSMA

	if want == "" {
		return nil
	}
	return s.flip(want, t, open)
}

// flip closes positions against the signal and opens one with it.
func (s *SMACrossStrategy) flip(want domain.Direction, t domain.Tick, open []domain.Position) []Action {
	var actions []Action
	holding := false
	for _, p := range open {
		if p.Direction == want {
			holding = true
			continue
		}
		actions = append(actions, Action{Type: ActionClose, PositionID: p.ID})
	}
	if holding || t.Timestamp >= s.cfg.Cutoff {
		return actions
	}

	price := float64(t.Price)
	sign := float64(want.Sign())
	sl := price * (1 - sign*s.cfg.StopPct)
	tp := price * (1 + sign*s.cfg.TakePct)
	return append(actions, Action{
		Type:       ActionOpen,
		Direction:  want,
		Shares:     s.cfg.Shares,
		Leverage:   s.cfg.Leverage,
		StopLoss:   &sl,
		TakeProfit: &tp,
	})
}

// calculateShortSMA calculates the SMA for the short period using the ring buffer.
func (s *SMACrossStrategy) calculateShortSMA() int64 {
	var sum int64
	// Walk backwards from current head (which points to next write slot, so head-1 is latest)
	idx := s.head
	for i := 0; i < s.cfg.ShortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.cfg.LongPeriod - 1
		}
		sum = safe.SafeAdd(sum, s.prices[idx])
	}
	return safe.SafeDiv(sum, int64(s.cfg.ShortPeriod))
}
