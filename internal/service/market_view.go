package service

import (
	"sync"

	"market_sim/internal/domain"
	"market_sim/pkg/quant"

	"github.com/shopspring/decimal"
)

const defaultTapeSize = 512

// Account is the read-side view of the player's book.
type Account struct {
	Balance    int64             `json:"balance"`
	Equity     int64             `json:"equity"` // cash plus locked margin
	Unrealized int64             `json:"unrealized"`
	Effective  int64             `json:"effective"`
	Positions  []domain.Position `json:"positions"`
}

// MarketView is the state shared with readers outside the market loop
// (HUD, feed, CLI). The loop writes, everyone else reads copies.
type MarketView struct {
	mu        sync.RWMutex
	sessionID string
	date      string
	regime    string
	quote     domain.Quote
	prevClose quant.Price
	tape      []domain.Tick // ring buffer of recent ticks
	tapeNext  int
	tapeFull  bool
	account   Account
	headlines []string
}

var _ domain.TickSink = (*MarketView)(nil)

// NewMarketView creates an empty view keeping the last tapeSize ticks.
func NewMarketView(tapeSize int) *MarketView {
	if tapeSize <= 0 {
		tapeSize = defaultTapeSize
	}
	return &MarketView{tape: make([]domain.Tick, tapeSize)}
}

// OpenSession resets the intraday state for a new trading day.
func (v *MarketView) OpenSession(sessionID, date, regime string, open, prevClose quant.Price) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sessionID, v.date, v.regime = sessionID, date, regime
	v.prevClose = prevClose
	v.quote = domain.Quote{
		Price:      open,
		Open:       open,
		High:       open,
		Low:        open,
		ChangeRate: decimal.Zero,
		Clock:      domain.FormatMinute(domain.SessionOpen),
	}
	v.tapeNext, v.tapeFull = 0, false
	v.headlines = v.headlines[:0]
}

// PublishTick folds a tick into the quote and the tape.
func (v *MarketView) PublishTick(t domain.Tick) {
	v.mu.Lock()
	defer v.mu.Unlock()

	q := &v.quote
	q.Price = t.Price
	q.High = max(q.High, t.High)
	if q.Low == 0 {
		q.Low = t.Low
	}
	q.Low = min(q.Low, t.Low)
	q.Volume += t.Volume
	q.ChangeRate = domain.ChangePct(t.Price, q.Open)
	q.Clock = t.Clock()
	q.VolState = t.VolState.String()
	q.Zone = t.Zone.String()
	q.Breakout = q.BreakoutState()
	q.Direction = q.ChangeDirection()

	v.tape[v.tapeNext] = t
	v.tapeNext = (v.tapeNext + 1) % len(v.tape)
	if v.tapeNext == 0 {
		v.tapeFull = true
	}
}

// UpdateAccount replaces the account view. Positions must already be copies.
func (v *MarketView) UpdateAccount(a Account) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.account = a
}

// AddHeadline records a fired news headline for the session.
func (v *MarketView) AddHeadline(h string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.headlines = append(v.headlines, h)
}

// Quote returns the current quote.
func (v *MarketView) Quote() domain.Quote {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.quote
}

// GapPct returns today's open against the previous close in percent.
func (v *MarketView) GapPct() decimal.Decimal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.ChangePct(v.quote.Open, v.prevClose)
}

// Session returns the id, date and regime label of the current session.
func (v *MarketView) Session() (id, date, regime string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sessionID, v.date, v.regime
}

// Recent returns up to n most recent ticks, oldest first.
func (v *MarketView) Recent(n int) []domain.Tick {
	v.mu.RLock()
	defer v.mu.RUnlock()

	size := v.tapeNext
	if v.tapeFull {
		size = len(v.tape)
	}
	n = min(n, size)
	out := make([]domain.Tick, n)
	start := v.tapeNext - n
	if start < 0 {
		start += len(v.tape)
	}
	for i := range out {
		out[i] = v.tape[(start+i)%len(v.tape)]
	}
	return out
}

// Account returns the account view with its own positions slice.
func (v *MarketView) Account() Account {
	v.mu.RLock()
	defer v.mu.RUnlock()

	a := v.account
	a.Positions = make([]domain.Position, len(v.account.Positions))
	for i := range v.account.Positions {
		a.Positions[i] = v.account.Positions[i].Clone()
	}
	return a
}

// Headlines returns the session's fired headlines.
func (v *MarketView) Headlines() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.headlines...)
}
