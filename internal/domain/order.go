package domain

import (
	"time"

	"market_sim/pkg/quant"
	"market_sim/pkg/safe"

	"github.com/shopspring/decimal"
)

// Direction is the side of a leveraged position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid reports whether d is LONG or SHORT.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Sign is +1 for LONG and -1 for SHORT.
func (d Direction) Sign() int64 {
	if d == Short {
		return -1
	}
	return 1
}

// CloseReason records why a position left the book.
type CloseReason string

const (
	CloseManual      CloseReason = "MANUAL"
	CloseStopLoss    CloseReason = "STOP_LOSS"
	CloseTakeProfit  CloseReason = "TAKE_PROFIT"
	CloseLiquidation CloseReason = "LIQUIDATION"
	CloseSessionEnd  CloseReason = "SESSION_END"
	CloseOvernight   CloseReason = "OVERNIGHT_GAP"
)

// Position is an open leveraged position.
// All monetary values are whole currency units.
type Position struct {
	ID            int64        `json:"id"`
	Direction     Direction    `json:"direction"`
	Shares        int64        `json:"shares"`
	EntryPrice    quant.Price  `json:"entry_price"`
	Leverage      int64        `json:"leverage"`
	Margin        int64        `json:"margin"`
	UnrealizedPnL int64        `json:"unrealized_pnl"`
	StopLoss      *quant.Price `json:"stop_loss,omitempty"`
	TakeProfit    *quant.Price `json:"take_profit,omitempty"`
}

// IsLong checks if the position is Long.
func (p *Position) IsLong() bool {
	return p.Direction == Long
}

// IsShort checks if the position is Short.
func (p *Position) IsShort() bool {
	return p.Direction == Short
}

// PnLAt returns the profit or loss if the position were closed at price.
func (p *Position) PnLAt(price quant.Price) int64 {
	move := safe.SafeSub(int64(price), int64(p.EntryPrice))
	return safe.SafeMul(p.Direction.Sign()*move, p.Shares)
}

// Clone returns a deep copy, including the optional SL/TP pointers.
func (p *Position) Clone() Position {
	c := *p
	if p.StopLoss != nil {
		v := *p.StopLoss
		c.StopLoss = &v
	}
	if p.TakeProfit != nil {
		v := *p.TakeProfit
		c.TakeProfit = &v
	}
	return c
}

// TradeResult is a closed position.
type TradeResult struct {
	PositionID int64           `json:"position_id"`
	Direction  Direction       `json:"direction"`
	Shares     int64           `json:"shares"`
	EntryPrice quant.Price     `json:"entry_price"`
	ExitPrice  quant.Price     `json:"exit_price"`
	Leverage   int64           `json:"leverage"`
	Margin     int64           `json:"margin"`
	PnL        int64           `json:"pnl"`
	Refund     int64           `json:"refund"`
	ReturnRate decimal.Decimal `json:"return_rate"` // % of margin
	Reason     CloseReason     `json:"reason"`
	ClosedAt   time.Time       `json:"closed_at"`
}

// IsWin reports a strictly positive PnL.
func (r *TradeResult) IsWin() bool {
	return r.PnL > 0
}
