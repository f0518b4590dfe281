package domain

import "market_sim/pkg/quant"

// TriggerKind identifies which protective order fired.
type TriggerKind string

const (
	TriggerStopLoss   TriggerKind = "STOP_LOSS"
	TriggerTakeProfit TriggerKind = "TAKE_PROFIT"
)

// Reason maps a trigger to the close reason recorded on the trade.
func (k TriggerKind) Reason() CloseReason {
	if k == TriggerTakeProfit {
		return CloseTakeProfit
	}
	return CloseStopLoss
}

// PriceAlert fires when price crosses Target in Direction.
type PriceAlert struct {
	Target    quant.Price `json:"target"`
	Direction string      `json:"direction"` // "UP" or "DOWN"
}

// CheckCondition returns true when:
// - Direction is UP and price >= target
// - Direction is DOWN and price <= target
func (a PriceAlert) CheckCondition(price quant.Price) bool {
	switch a.Direction {
	case "UP":
		return price >= a.Target
	case "DOWN":
		return price <= a.Target
	default:
		return false
	}
}

// Trigger is a crossed stop-loss or take-profit, reported to the session
// driver which performs the close.
type Trigger struct {
	PositionID int64       `json:"position_id"`
	Kind       TriggerKind `json:"kind"`
	Level      quant.Price `json:"level"`
}

// ProtectiveAlerts returns the SL/TP alerts of a position. A LONG stop
// waits for price to fall, a SHORT stop for price to rise; take-profits
// are the mirror image.
func ProtectiveAlerts(p *Position) (sl, tp *PriceAlert) {
	down, up := "DOWN", "UP"
	if p.IsShort() {
		down, up = up, down
	}
	if p.StopLoss != nil {
		sl = &PriceAlert{Target: *p.StopLoss, Direction: down}
	}
	if p.TakeProfit != nil {
		tp = &PriceAlert{Target: *p.TakeProfit, Direction: up}
	}
	return sl, tp
}
