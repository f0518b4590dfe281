package domain

import (
	"fmt"

	"market_sim/pkg/safe"
)

// Balance is the player's cash account with invariant checking.
// Margin locked in open positions is not part of Amount; it is moved out
// on open and refunded on close.
type Balance struct {
	Amount int64 `json:"amount"`
	Locked int64 `json:"locked"` // sum of open position margins
}

// Equity returns cash plus locked margin.
func (b *Balance) Equity() int64 {
	return safe.SafeAdd(b.Amount, b.Locked)
}

// Lock moves margin from cash into an open position.
func (b *Balance) Lock(margin int64) {
	if margin > b.Amount {
		panic(fmt.Sprintf("BALANCE_INSUFFICIENT: need %d, available %d", margin, b.Amount))
	}
	b.Amount = safe.SafeSub(b.Amount, margin)
	b.Locked = safe.SafeAdd(b.Locked, margin)
}

// Release returns a position's margin plus pnl to cash. A loss larger than
// the margin is absorbed by the position (isolated margin), so the refund
// is floored at zero. Returns the amount actually refunded.
func (b *Balance) Release(margin, pnl int64) int64 {
	if margin > b.Locked {
		panic(fmt.Sprintf("BALANCE_RELEASE_EXCEEDS_LOCKED: release %d, locked %d", margin, b.Locked))
	}
	b.Locked = safe.SafeSub(b.Locked, margin)
	refund := safe.Max0(safe.SafeAdd(margin, pnl))
	b.Amount = safe.SafeAdd(b.Amount, refund)
	return refund
}

// VerifyInvariant checks that balance satisfies invariants.
// Call this after any state change to ensure data integrity.
func (b *Balance) VerifyInvariant() {
	if b.Amount < 0 {
		panic(fmt.Sprintf("BALANCE_INVARIANT_NEGATIVE_AMOUNT: %d", b.Amount))
	}
	if b.Locked < 0 {
		panic(fmt.Sprintf("BALANCE_INVARIANT_NEGATIVE_LOCKED: %d", b.Locked))
	}
}
