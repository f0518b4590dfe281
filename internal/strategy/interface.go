package strategy

import (
	"market_sim/internal/domain"
)

// ActionType defines the type of trading action
type ActionType int

const (
	ActionOpen ActionType = iota + 1
	ActionClose
)

// String returns the string representation of ActionType
func (a ActionType) String() string {
	switch a {
	case ActionOpen:
		return "OPEN"
	case ActionClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Action represents a decision made by the strategy. Open actions carry
// the raw SL/TP levels; the trading engine rounds them onto the grid.
type Action struct {
	Type       ActionType
	Direction  domain.Direction
	Shares     int64
	Leverage   int64
	StopLoss   *float64
	TakeProfit *float64
	PositionID int64 // ActionClose only
}

// Strategy is the interface that all trading strategies must implement.
// It is called synchronously from the tick callback.
type Strategy interface {
	// OnTick is called for every emitted tick with copies of the open
	// positions. It returns the actions to execute, closes first.
	OnTick(t domain.Tick, open []domain.Position) []Action
	// Reset clears intraday state at the start of a session.
	Reset()
}
