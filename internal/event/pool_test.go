package event

import (
	"testing"
)

func TestTickEventPool(t *testing.T) {
	ev := AcquireTickEvent()
	ev.SessionID = "s1"
	ev.Price = 30000

	if ev.Price != 30000 {
		t.Error("Price not set")
	}

	ReleaseTickEvent(ev)

	ev2 := AcquireTickEvent()
	if ev2.SessionID != "" || ev2.Price != 0 {
		t.Error("Event should be reset after release")
	}
	ReleaseTickEvent(ev2)
}

func TestReleaseNil(t *testing.T) {
	ReleaseTickEvent(nil)
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		ev   Event
		want Type
	}{
		{TickEvent{}, EvTick},
		{NewsEvent{}, EvNews},
		{PositionOpenedEvent{}, EvPositionOpened},
		{PositionClosedEvent{}, EvPositionClosed},
		{SessionStartedEvent{}, EvSessionStarted},
		{SessionEndedEvent{}, EvSessionEnded},
		{SystemHaltEvent{}, EvSystemHalt},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := tt.ev.GetType(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func BenchmarkWithoutPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := &TickEvent{Price: 30000}
		_ = ev
	}
}

func BenchmarkWithPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := AcquireTickEvent()
		ev.Price = 30000
		ReleaseTickEvent(ev)
	}
}
