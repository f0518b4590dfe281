package event

// Type defines the type of event.
type Type uint16

const (
	EvTick Type = iota + 1
	EvNews
	EvPositionOpened
	EvPositionClosed
	EvSessionStarted
	EvSessionEnded
	EvSystemHalt
)

func (t Type) String() string {
	switch t {
	case EvTick:
		return "TICK"
	case EvNews:
		return "NEWS"
	case EvPositionOpened:
		return "POSITION_OPENED"
	case EvPositionClosed:
		return "POSITION_CLOSED"
	case EvSessionStarted:
		return "SESSION_STARTED"
	case EvSessionEnded:
		return "SESSION_ENDED"
	case EvSystemHalt:
		return "SYSTEM_HALT"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface for all journaled events.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
}

// BaseEvent contains common fields for all events.
// Ts is wall-clock unix milliseconds; Minute is simulated minutes of day.
type BaseEvent struct {
	Seq       uint64  `json:"seq"`
	Ts        int64   `json:"ts"`
	SessionID string  `json:"session_id"`
	Minute    float64 `json:"minute"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() int64   { return e.Ts }

func (e BaseEvent) GetSessionID() string { return e.SessionID }

// TickEvent is one emitted price tick.
type TickEvent struct {
	BaseEvent
	Price    int64  `json:"price"`
	High     int64  `json:"high"`
	Low      int64  `json:"low"`
	Volume   int64  `json:"volume"`
	VolState string `json:"vol_state"`
	Zone     string `json:"zone"`
}

func (e TickEvent) GetType() Type { return EvTick }

// NewsEvent is a fired news headline and the force it injected.
type NewsEvent struct {
	BaseEvent
	NewsID   string  `json:"news_id"`
	Headline string  `json:"headline"`
	Impact   float64 `json:"impact"`
	Force    float64 `json:"force"`
}

func (e NewsEvent) GetType() Type { return EvNews }

// PositionOpenedEvent records a new position.
type PositionOpenedEvent struct {
	BaseEvent
	PositionID int64  `json:"position_id"`
	Direction  string `json:"direction"`
	Shares     int64  `json:"shares"`
	Price      int64  `json:"price"`
	Leverage   int64  `json:"leverage"`
	Margin     int64  `json:"margin"`
}

func (e PositionOpenedEvent) GetType() Type { return EvPositionOpened }

// PositionClosedEvent records a realised trade.
type PositionClosedEvent struct {
	BaseEvent
	PositionID int64  `json:"position_id"`
	Reason     string `json:"reason"`
	Price      int64  `json:"price"`
	PnL        int64  `json:"pnl"`
	Refund     int64  `json:"refund"`
}

func (e PositionClosedEvent) GetType() Type { return EvPositionClosed }

// SessionStartedEvent marks the opening of a trading day.
type SessionStartedEvent struct {
	BaseEvent
	Date   string `json:"date"`
	Regime string `json:"regime"`
	Open   int64  `json:"open"`
}

func (e SessionStartedEvent) GetType() Type { return EvSessionStarted }

// SessionEndedEvent marks the close of a trading day.
type SessionEndedEvent struct {
	BaseEvent
	Close   int64 `json:"close"`
	Ticks   int64 `json:"ticks"`
	Balance int64 `json:"balance"`
}

func (e SessionEndedEvent) GetType() Type { return EvSessionEnded }

// SystemHaltEvent is written when the market loop panics.
type SystemHaltEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (e SystemHaltEvent) GetType() Type { return EvSystemHalt }
