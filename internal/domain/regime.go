package domain

// Regime is the macro market mood for a quarter.
type Regime uint8

const (
	RegimeBullish Regime = iota
	RegimeBearish
	RegimeRange
	RegimeTurbulent
	RegimeBubble
	RegimeCrash
)

// RegimeCount is the number of regimes.
const RegimeCount = 6

// Regimes lists all regimes in transition-matrix order.
var Regimes = [RegimeCount]Regime{
	RegimeBullish, RegimeBearish, RegimeRange, RegimeTurbulent, RegimeBubble, RegimeCrash,
}

func (r Regime) String() string {
	switch r {
	case RegimeBullish:
		return "bullish"
	case RegimeBearish:
		return "bearish"
	case RegimeRange:
		return "range"
	case RegimeTurbulent:
		return "turbulent"
	case RegimeBubble:
		return "bubble"
	case RegimeCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// ParseRegime is the inverse of String. Unknown names map to range.
func ParseRegime(s string) (Regime, bool) {
	for _, r := range Regimes {
		if r.String() == s {
			return r, true
		}
	}
	return RegimeRange, false
}

// Valid reports whether r is one of the six regimes.
func (r Regime) Valid() bool {
	return r < RegimeCount
}
