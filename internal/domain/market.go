package domain

import "market_sim/pkg/quant"

// Session clock in minutes of day.
const (
	SessionOpen      = 540.0 // 09:00
	MorningStart     = 570.0 // 09:30
	LunchStart       = 690.0 // 11:30
	AfternoonStart   = 780.0 // 13:00
	ClosingAuction   = 900.0 // 15:00
	SessionClose     = 930.0 // 15:30
	SessionMinutes   = SessionClose - SessionOpen
	MinutesPerHour   = 60.0
	ReferenceTickMin = 0.5 // simulated minutes in one reference tick
)

// VolatilityState is the short-term activity level of the tape.
type VolatilityState uint8

const (
	VolNormal VolatilityState = iota
	VolHigh
	VolLow
)

// VolatilityStates lists the states in Markov-chain order.
var VolatilityStates = [...]VolatilityState{VolHigh, VolNormal, VolLow}

func (v VolatilityState) String() string {
	switch v {
	case VolHigh:
		return "high"
	case VolLow:
		return "low"
	default:
		return "normal"
	}
}

// TimeZone is the intraday phase a timestamp falls into.
type TimeZone uint8

const (
	ZoneOpen TimeZone = iota
	ZoneMorning
	ZoneLunch
	ZoneAfternoon
	ZoneClose
)

func (z TimeZone) String() string {
	switch z {
	case ZoneOpen:
		return "open"
	case ZoneMorning:
		return "morning"
	case ZoneLunch:
		return "lunch"
	case ZoneAfternoon:
		return "afternoon"
	default:
		return "close"
	}
}

// ZoneAt maps minutes of day to a time zone.
func ZoneAt(minute float64) TimeZone {
	switch {
	case minute < MorningStart:
		return ZoneOpen
	case minute < LunchStart:
		return ZoneMorning
	case minute < AfternoonStart:
		return ZoneLunch
	case minute < ClosingAuction:
		return ZoneAfternoon
	default:
		return ZoneClose
	}
}

// NaturalVolatility is the state a zone drifts toward.
func (z TimeZone) NaturalVolatility() VolatilityState {
	switch z {
	case ZoneOpen, ZoneClose:
		return VolHigh
	case ZoneLunch:
		return VolLow
	default:
		return VolNormal
	}
}

// Tick is one emitted price update. Values are immutable once emitted.
// Fields are ordered hot first: price data, then clock and labels.
type Tick struct {
	Price     quant.Price     `json:"price"`
	High      quant.Price     `json:"high"`
	Low       quant.Price     `json:"low"`
	Volume    int64           `json:"volume"`
	Timestamp float64         `json:"ts"` // minutes of day
	VolState  VolatilityState `json:"vol_state"`
	Zone      TimeZone        `json:"zone"`
}

// Clock formats the tick timestamp as HH:MM.
func (t Tick) Clock() string {
	return FormatMinute(t.Timestamp)
}

// FormatMinute renders minutes of day as HH:MM.
func FormatMinute(minute float64) string {
	m := int(minute)
	h := m / 60
	mm := m % 60
	return string([]byte{
		byte('0' + h/10), byte('0' + h%10), ':',
		byte('0' + mm/10), byte('0' + mm%10),
	})
}
