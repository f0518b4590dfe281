package event

import (
	"sync"
)

// tickPool provides sync.Pool for the per-tick journal event.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireTickEvent()
//	ev.Price = 30000
//	// ... journal event ...
//	ReleaseTickEvent(ev)  // Return to pool after processing
var tickPool = sync.Pool{
	New: func() interface{} {
		return &TickEvent{}
	},
}

// AcquireTickEvent gets a TickEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent returns a TickEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	*ev = TickEvent{}
	tickPool.Put(ev)
}

// Warmup pre-allocates tick events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 1000

	evs := make([]*TickEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireTickEvent())
	}
	for _, ev := range evs {
		ReleaseTickEvent(ev)
	}
}
