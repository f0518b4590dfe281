// Package execution implements the leveraged position book players trade
// against: isolated margin, SL/TP on the exchange grid and liquidation.
package execution

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"
	"market_sim/pkg/safe"

	"github.com/shopspring/decimal"
)

const (
	// DefaultLeverage is used when the player does not pick one.
	DefaultLeverage int64 = 1
	// DefaultMaxLeverage caps leverage for a new account.
	DefaultMaxLeverage int64 = 10
)

// Snapshot is the persisted value object of the engine.
type Snapshot struct {
	Balance      int64                `json:"balance"`
	MaxLeverage  int64                `json:"max_leverage"`
	Positions    []domain.Position    `json:"positions"`
	ClosedTrades []domain.TradeResult `json:"closed_trades"`
	NextID       int64                `json:"next_id"`
}

// TradingEngine simulates leveraged long/short positions against the
// player's cash balance. All monetary values are whole currency units.
type TradingEngine struct {
	mu          sync.Mutex
	balance     domain.Balance
	maxLeverage int64
	positions   map[int64]*domain.Position
	closed      []domain.TradeResult
	nextID      int64
	clock       func() time.Time
}

// NewTradingEngine creates an engine with a starting cash balance.
func NewTradingEngine(balance, maxLeverage int64) *TradingEngine {
	if maxLeverage < 1 {
		maxLeverage = DefaultMaxLeverage
	}
	return &TradingEngine{
		balance:     domain.Balance{Amount: balance},
		maxLeverage: maxLeverage,
		positions:   make(map[int64]*domain.Position),
		nextID:      1,
		clock:       time.Now,
	}
}

// RequiredMargin returns shares*price/leverage rounded to a whole unit.
func RequiredMargin(shares int64, price quant.Price, leverage int64) int64 {
	notional := decimal.NewFromInt(safe.SafeMul(shares, int64(price)))
	return notional.Div(decimal.NewFromInt(leverage)).Round(0).IntPart()
}

// OpenPosition deducts margin and opens a position. Nothing is mutated
// when the request is rejected.
func (t *TradingEngine) OpenPosition(dir domain.Direction, shares int64, price quant.Price, leverage int64) (domain.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case !dir.Valid():
		return domain.Position{}, fmt.Errorf("open %q: %w", dir, domain.ErrInvalidDirection)
	case shares <= 0:
		return domain.Position{}, fmt.Errorf("open %d shares: %w", shares, domain.ErrInvalidShares)
	case price <= 0:
		return domain.Position{}, fmt.Errorf("open at %d: %w", price, domain.ErrInvalidPrice)
	case leverage < 1 || leverage > t.maxLeverage:
		return domain.Position{}, fmt.Errorf("open x%d (max x%d): %w", leverage, t.maxLeverage, domain.ErrInvalidLeverage)
	}

	margin := RequiredMargin(shares, price, leverage)
	if margin > t.balance.Amount {
		return domain.Position{}, fmt.Errorf("open needs %d, have %d: %w", margin, t.balance.Amount, domain.ErrInsufficientBalance)
	}

	t.balance.Lock(margin)
	pos := &domain.Position{
		ID:         t.nextID,
		Direction:  dir,
		Shares:     shares,
		EntryPrice: price,
		Leverage:   leverage,
		Margin:     margin,
	}
	t.positions[pos.ID] = pos
	t.nextID++
	t.balance.VerifyInvariant()

	slog.Info("POSITION_OPENED",
		slog.Int64("id", pos.ID),
		slog.String("direction", string(dir)),
		slog.Int64("shares", shares),
		slog.Int64("price", int64(price)),
		slog.Int64("leverage", leverage),
		slog.Int64("margin", margin))

	return pos.Clone(), nil
}

// ClosePosition realises PnL at price and refunds margin+PnL (floored at 0).
func (t *TradingEngine) ClosePosition(id int64, price quant.Price, reason domain.CloseReason) (domain.TradeResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if price <= 0 {
		return domain.TradeResult{}, fmt.Errorf("close %d at %d: %w", id, price, domain.ErrInvalidPrice)
	}
	pos, ok := t.positions[id]
	if !ok {
		return domain.TradeResult{}, fmt.Errorf("close %d: %w", id, domain.ErrPositionNotFound)
	}
	return t.closeLocked(pos, price, reason), nil
}

func (t *TradingEngine) closeLocked(pos *domain.Position, price quant.Price, reason domain.CloseReason) domain.TradeResult {
	pnl := pos.PnLAt(price)
	refund := t.balance.Release(pos.Margin, pnl)
	delete(t.positions, pos.ID)
	t.balance.VerifyInvariant()

	res := domain.TradeResult{
		PositionID: pos.ID,
		Direction:  pos.Direction,
		Shares:     pos.Shares,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Leverage:   pos.Leverage,
		Margin:     pos.Margin,
		PnL:        pnl,
		Refund:     refund,
		ReturnRate: returnRate(pnl, pos.Margin),
		Reason:     reason,
		ClosedAt:   t.clock(),
	}
	t.closed = append(t.closed, res)

	slog.Info("POSITION_CLOSED",
		slog.Int64("id", pos.ID),
		slog.String("reason", string(reason)),
		slog.Int64("price", int64(price)),
		slog.Int64("pnl", pnl),
		slog.String("return_pct", res.ReturnRate.String()))

	return res
}

func returnRate(pnl, margin int64) decimal.Decimal {
	if margin == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(pnl).
		Div(decimal.NewFromInt(margin)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// ForceCloseAll closes every open position at one price, in id order.
func (t *TradingEngine) ForceCloseAll(price quant.Price, reason domain.CloseReason) []domain.TradeResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if price <= 0 {
		return nil
	}
	var out []domain.TradeResult
	for _, id := range t.sortedIDs() {
		out = append(out, t.closeLocked(t.positions[id], price, reason))
	}
	return out
}

// RecalculateUnrealized marks every position to price and returns the
// total unrealized PnL and the effective balance (free cash + total).
func (t *TradingEngine) RecalculateUnrealized(price quant.Price) (total, effective int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, pos := range t.positions {
		pos.UnrealizedPnL = pos.PnLAt(price)
		total = safe.SafeAdd(total, pos.UnrealizedPnL)
	}
	return total, safe.SafeAdd(t.balance.Amount, total)
}

// SetSLTP sets or clears (nil) the stop-loss and take-profit of a position.
// Both requested levels are rounded away from entry onto the grid, then
// validated; if either fails neither field changes.
func (t *TradingEngine) SetSLTP(id int64, stopLoss, takeProfit *float64) (domain.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("sltp %d: %w", id, domain.ErrPositionNotFound)
	}

	var sl, tp *quant.Price
	if stopLoss != nil {
		v, err := roundStopLoss(pos.Direction, *stopLoss)
		if err != nil {
			return domain.Position{}, err
		}
		sl = &v
	}
	if takeProfit != nil {
		v, err := roundTakeProfit(pos.Direction, *takeProfit)
		if err != nil {
			return domain.Position{}, err
		}
		tp = &v
	}
	if err := validateSLTP(pos, sl, tp); err != nil {
		return domain.Position{}, err
	}

	pos.StopLoss, pos.TakeProfit = sl, tp
	return pos.Clone(), nil
}

// roundStopLoss floors a LONG stop and ceils a SHORT stop, so the rounded
// trigger is never closer to entry than requested.
func roundStopLoss(dir domain.Direction, v float64) (quant.Price, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("stop loss %v: %w", v, domain.ErrInvalidStopLoss)
	}
	r := quant.FloorToTick(v)
	if dir == domain.Short {
		r = quant.CeilToTick(v)
	}
	if r < float64(quant.MinPrice) {
		return 0, fmt.Errorf("stop loss %v below minimum %d: %w", v, quant.MinPrice, domain.ErrInvalidStopLoss)
	}
	return quant.Price(r), nil
}

// roundTakeProfit ceils a LONG target and floors a SHORT target.
func roundTakeProfit(dir domain.Direction, v float64) (quant.Price, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("take profit %v: %w", v, domain.ErrInvalidTakeProfit)
	}
	r := quant.CeilToTick(v)
	if dir == domain.Short {
		r = quant.FloorToTick(v)
	}
	if r < float64(quant.MinPrice) {
		return 0, fmt.Errorf("take profit %v below minimum %d: %w", v, quant.MinPrice, domain.ErrInvalidTakeProfit)
	}
	return quant.Price(r), nil
}

// validateSLTP checks rounded levels against entry: a LONG stop must be
// strictly below entry and its target strictly above; SHORT is mirrored.
func validateSLTP(pos *domain.Position, sl, tp *quant.Price) error {
	entry := pos.EntryPrice
	long := pos.IsLong()
	if sl != nil && ((long && *sl >= entry) || (!long && *sl <= entry)) {
		return fmt.Errorf("stop loss %d vs entry %d (%s): %w", *sl, entry, pos.Direction, domain.ErrInvalidStopLoss)
	}
	if tp != nil && ((long && *tp <= entry) || (!long && *tp >= entry)) {
		return fmt.Errorf("take profit %d vs entry %d (%s): %w", *tp, entry, pos.Direction, domain.ErrInvalidTakeProfit)
	}
	return nil
}

// CheckSLTP returns the positions whose stop-loss or take-profit is crossed
// at price, in id order. A stop wins when both are crossed.
func (t *TradingEngine) CheckSLTP(price quant.Price) []domain.Trigger {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []domain.Trigger
	for _, id := range t.sortedIDs() {
		pos := t.positions[id]
		sl, tp := domain.ProtectiveAlerts(pos)
		switch {
		case sl != nil && sl.CheckCondition(price):
			out = append(out, domain.Trigger{PositionID: id, Kind: domain.TriggerStopLoss, Level: sl.Target})
		case tp != nil && tp.CheckCondition(price):
			out = append(out, domain.Trigger{PositionID: id, Kind: domain.TriggerTakeProfit, Level: tp.Target})
		}
	}
	return out
}

// CheckLiquidations returns the ids of positions whose loss at price has
// consumed their whole margin.
func (t *TradingEngine) CheckLiquidations(price quant.Price) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []int64
	for _, id := range t.sortedIDs() {
		pos := t.positions[id]
		if safe.SafeAdd(pos.Margin, pos.PnLAt(price)) <= 0 {
			out = append(out, id)
		}
	}
	return out
}

func (t *TradingEngine) sortedIDs() []int64 {
	ids := make([]int64, 0, len(t.positions))
	for id := range t.positions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Positions returns copies of the open positions in id order.
func (t *TradingEngine) Positions() []domain.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Position, 0, len(t.positions))
	for _, id := range t.sortedIDs() {
		out = append(out, t.positions[id].Clone())
	}
	return out
}

// Position returns a copy of one open position.
func (t *TradingEngine) Position(id int64) (domain.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return domain.Position{}, false
	}
	return pos.Clone(), true
}

// Balance returns free cash.
func (t *TradingEngine) Balance() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance.Amount
}

// Equity returns free cash plus the margin locked in open positions.
func (t *TradingEngine) Equity() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance.Equity()
}

// MaxLeverage returns the leverage cap.
func (t *TradingEngine) MaxLeverage() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxLeverage
}

// SetMaxLeverage raises or lowers the cap for future opens. Open positions
// keep their leverage.
func (t *TradingEngine) SetMaxLeverage(v int64) error {
	if v < 1 {
		return fmt.Errorf("max leverage %d: %w", v, domain.ErrInvalidLeverage)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxLeverage = v
	return nil
}

// ClosedTrades returns all closed trades.
func (t *TradingEngine) ClosedTrades() []domain.TradeResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]domain.TradeResult, len(t.closed))
	copy(result, t.closed)
	return result
}

// Snapshot returns the persisted state.
func (t *TradingEngine) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Balance:      t.balance.Amount,
		MaxLeverage:  t.maxLeverage,
		ClosedTrades: append([]domain.TradeResult(nil), t.closed...),
		NextID:       t.nextID,
	}
	for _, id := range t.sortedIDs() {
		s.Positions = append(s.Positions, t.positions[id].Clone())
	}
	return s
}

// Restore rebuilds an engine from a snapshot.
func Restore(s Snapshot) (*TradingEngine, error) {
	if s.Balance < 0 {
		return nil, fmt.Errorf("restore trading: negative balance %d", s.Balance)
	}
	t := NewTradingEngine(s.Balance, s.MaxLeverage)
	t.closed = append(t.closed, s.ClosedTrades...)
	t.nextID = max(s.NextID, 1)

	for _, p := range s.Positions {
		if !p.Direction.Valid() || p.Shares <= 0 || p.EntryPrice <= 0 || p.Leverage < 1 {
			return nil, fmt.Errorf("restore trading: invalid position %d", p.ID)
		}
		if _, dup := t.positions[p.ID]; dup {
			return nil, fmt.Errorf("restore trading: duplicate position %d", p.ID)
		}
		pos := p.Clone()
		t.positions[p.ID] = &pos
		t.balance.Locked = safe.SafeAdd(t.balance.Locked, p.Margin)
		t.nextID = max(t.nextID, p.ID+1)
	}
	return t, nil
}
