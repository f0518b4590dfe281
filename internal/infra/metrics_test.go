package infra

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordTick(t *testing.T) {
	m := &Metrics{}

	m.RecordTick(1000)
	m.RecordTick(2000)
	m.RecordTick(3000)

	snap := m.Snapshot()

	if snap.TicksEmitted != 3 {
		t.Errorf("Expected 3 ticks, got %d", snap.TicksEmitted)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Trades(t *testing.T) {
	m := &Metrics{}

	m.RecordTradeClosed(false)
	m.RecordTradeClosed(true)

	snap := m.Snapshot()
	if snap.TradesClosed != 2 {
		t.Errorf("Expected 2 trades, got %d", snap.TradesClosed)
	}
	if snap.Liquidations != 1 {
		t.Errorf("Expected 1 liquidation, got %d", snap.Liquidations)
	}
}

func TestMetrics_Clients(t *testing.T) {
	m := &Metrics{}

	m.IncrementClients()
	m.IncrementClients()
	m.IncrementClients()
	m.DecrementClients()

	snap := m.Snapshot()
	if snap.FeedClients != 2 {
		t.Errorf("Expected 2 clients, got %d", snap.FeedClients)
	}
}

func TestMetrics_Halted(t *testing.T) {
	m := &Metrics{}

	if m.Snapshot().Halted {
		t.Error("Expected running initially")
	}
	m.SetHalted(true)
	if !m.Snapshot().Halted {
		t.Error("Expected halted")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordTick(1000)
	m.RecordError()
	m.IncrementClients()

	m.Reset()
	snap := m.Snapshot()

	if snap.TicksEmitted != 0 {
		t.Error("Expected 0 ticks after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.FeedClients != 0 {
		t.Error("Expected 0 clients after reset")
	}
}

func TestRecorder_MirrorsIntoPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := &Metrics{}
	r := NewRecorder(reg, m)

	r.RecordTick(30010, 150, 20*time.Microsecond)
	r.RecordTick(30020, 90, 30*time.Microsecond)
	r.RecordNews()
	r.RecordTradeClosed("STOP_LOSS", false)
	r.RecordTradeClosed("LIQUIDATION", true)

	if got := testutil.ToFloat64(r.ticks); got != 2 {
		t.Errorf("Expected 2 ticks, got %v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice); got != 30020 {
		t.Errorf("Expected last price 30020, got %v", got)
	}
	if got := testutil.ToFloat64(r.trades.WithLabelValues("LIQUIDATION")); got != 1 {
		t.Errorf("Expected 1 liquidation trade, got %v", got)
	}
	if snap := m.Snapshot(); snap.TicksEmitted != 2 || snap.NewsFired != 1 || snap.Liquidations != 1 {
		t.Errorf("Expected mirrored counters, got %+v", snap)
	}

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if n == 0 {
		t.Error("Expected registered metrics")
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordTick(1, 1, time.Millisecond)
	r.RecordNews()
	r.RecordTradeClosed("MANUAL", false)
	r.RecordError("x")
	r.RecordAccount(1, 1)
	r.ClientConnected()
	r.ClientDisconnected()
	r.SetHalted()
}
