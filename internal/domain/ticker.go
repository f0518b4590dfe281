package domain

import (
	"market_sim/pkg/quant"

	"github.com/shopspring/decimal"
)

// Quote is the read-side view of the session tape for a chart or HUD.
type Quote struct {
	Price      quant.Price     `json:"price"`
	Open       quant.Price     `json:"open"`
	High       quant.Price     `json:"high"`
	Low        quant.Price     `json:"low"`
	Volume     int64           `json:"volume"`      // cumulative session volume
	ChangeRate decimal.Decimal `json:"change_rate"` // % vs open
	Clock      string          `json:"clock"`
	VolState   string          `json:"vol_state"`
	Zone       string          `json:"zone"`
	Breakout   string          `json:"breakout"`  // see BreakoutState
	Direction  string          `json:"direction"` // see ChangeDirection
}

// ChangePct calculates 100 * (price - open) / open, rounded to 2 places.
func ChangePct(price, open quant.Price) decimal.Decimal {
	if open <= 0 {
		return decimal.Zero
	}
	p := decimal.NewFromInt(int64(price))
	o := decimal.NewFromInt(int64(open))
	return p.Sub(o).Div(o).Mul(decimal.NewFromInt(100)).Round(2)
}

// IsBreakoutHigh returns true if price is at the session high
func (q *Quote) IsBreakoutHigh() bool {
	return q.High > 0 && q.Price >= q.High
}

// IsBreakoutLow returns true if price is at the session low
func (q *Quote) IsBreakoutLow() bool {
	return q.Low > 0 && q.Price <= q.Low
}

// BreakoutState returns "high", "low", or "normal"
func (q *Quote) BreakoutState() string {
	if q.IsBreakoutHigh() {
		return "high"
	}
	if q.IsBreakoutLow() {
		return "low"
	}
	return "normal"
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (q *Quote) ChangeDirection() string {
	if q.ChangeRate.IsPositive() {
		return "positive"
	}
	if q.ChangeRate.IsNegative() {
		return "negative"
	}
	return "neutral"
}
