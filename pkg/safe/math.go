// Package safe holds overflow-checked int64 arithmetic for money values.
// Balances and margins are whole currency units; an overflow is a broken
// invariant, so every helper panics instead of wrapping around.
package safe

import "math"

// SafeAdd returns a+b and panics on overflow.
func SafeAdd(a, b int64) int64 {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		panic("SAFE_ADD_OVERFLOW")
	}
	return sum
}

// SafeSub returns a-b and panics on overflow.
func SafeSub(a, b int64) int64 {
	if b == math.MinInt64 {
		if a >= 0 {
			panic("SAFE_SUB_OVERFLOW")
		}
		return a - b
	}
	return SafeAdd(a, -b)
}

// SafeMul returns a*b and panics on overflow.
func SafeMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		panic("SAFE_MUL_OVERFLOW")
	}
	p := a * b
	if p/b != a {
		panic("SAFE_MUL_OVERFLOW")
	}
	return p
}

// SafeDiv returns a/b and panics on division by zero or overflow.
func SafeDiv(a, b int64) int64 {
	if b == 0 {
		panic("SAFE_DIV_BY_ZERO")
	}
	if a == math.MinInt64 && b == -1 {
		panic("SAFE_DIV_OVERFLOW")
	}
	return a / b
}

// SafeNeg returns -a and panics for MinInt64.
func SafeNeg(a int64) int64 {
	if a == math.MinInt64 {
		panic("SAFE_NEG_OVERFLOW")
	}
	return -a
}

// Max0 clamps negative values to zero.
func Max0(a int64) int64 {
	if a < 0 {
		return 0
	}
	return a
}
