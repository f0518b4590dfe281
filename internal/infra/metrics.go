package infra

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is an in-process counter set, cheap enough to update on every
// tick and read for the end-of-run summary.
type Metrics struct {
	// Counters
	ticksEmitted atomic.Uint64
	newsFired    atomic.Uint64
	tradesClosed atomic.Uint64
	liquidations atomic.Uint64
	errorsTotal  atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	feedClients atomic.Int32
	halted      atomic.Int32 // 1 = market loop halted
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records an emitted tick with its step latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksEmitted.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordNews records a fired news event.
func (m *Metrics) RecordNews() {
	m.newsFired.Add(1)
}

// RecordTradeClosed records a closed position; liquidations are also
// counted separately.
func (m *Metrics) RecordTradeClosed(liquidated bool) {
	m.tradesClosed.Add(1)
	if liquidated {
		m.liquidations.Add(1)
	}
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementClients increments connected feed clients by 1.
func (m *Metrics) IncrementClients() {
	m.feedClients.Add(1)
}

// DecrementClients decrements connected feed clients by 1.
func (m *Metrics) DecrementClients() {
	m.feedClients.Add(-1)
}

// SetHalted marks the market loop as halted.
func (m *Metrics) SetHalted(halted bool) {
	if halted {
		m.halted.Store(1)
	} else {
		m.halted.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksEmitted uint64
	NewsFired    uint64
	TradesClosed uint64
	Liquidations uint64
	ErrorsTotal  uint64
	AvgLatencyNs int64
	FeedClients  int32
	Halted       bool
	Timestamp    time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksEmitted: m.ticksEmitted.Load(),
		NewsFired:    m.newsFired.Load(),
		TradesClosed: m.tradesClosed.Load(),
		Liquidations: m.liquidations.Load(),
		ErrorsTotal:  m.errorsTotal.Load(),
		AvgLatencyNs: avgLatency,
		FeedClients:  m.feedClients.Load(),
		Halted:       m.halted.Load() == 1,
		Timestamp:    time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksEmitted.Store(0)
	m.newsFired.Store(0)
	m.tradesClosed.Store(0)
	m.liquidations.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.feedClients.Store(0)
	m.halted.Store(0)
}

// Recorder mirrors Metrics into Prometheus collectors served on /metrics.
// A nil *Recorder is a no-op.
type Recorder struct {
	m            *Metrics
	ticks        prometheus.Counter
	news         prometheus.Counter
	trades       *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    prometheus.Gauge
	lastVolume   prometheus.Gauge
	stepLatency  prometheus.Histogram
	feedClients  prometheus.Gauge
	balance      prometheus.Gauge
	openPosition prometheus.Gauge
}

// NewRecorder registers the simulator collectors on reg and mirrors
// every observation into m.
func NewRecorder(reg prometheus.Registerer, m *Metrics) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		m: m,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "marketsim",
			Name:      "ticks_total",
			Help:      "Total number of emitted ticks",
		}),
		news: f.NewCounter(prometheus.CounterOpts{
			Namespace: "marketsim",
			Name:      "news_fired_total",
			Help:      "Total number of fired news events",
		}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketsim",
			Name:      "trades_closed_total",
			Help:      "Closed positions by close reason",
		}, []string{"reason"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketsim",
			Name:      "errors_total",
			Help:      "Total number of errors encountered",
		}, []string{"type"}),
		lastPrice: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Name:      "last_price",
			Help:      "Last emitted price",
		}),
		lastVolume: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Name:      "last_volume",
			Help:      "Volume of the last emitted tick",
		}),
		stepLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marketsim",
			Name:      "step_duration_seconds",
			Help:      "Wall time spent handling one tick",
			Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
		}),
		feedClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Name:      "feed_clients",
			Help:      "Connected websocket feed clients",
		}),
		balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Name:      "balance",
			Help:      "Free cash balance",
		}),
		openPosition: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),
	}
}

// RecordTick records one tick and the time spent handling it.
func (r *Recorder) RecordTick(price, volume int64, took time.Duration) {
	if r == nil {
		return
	}
	r.m.RecordTick(took.Nanoseconds())
	r.ticks.Inc()
	r.lastPrice.Set(float64(price))
	r.lastVolume.Set(float64(volume))
	r.stepLatency.Observe(took.Seconds())
}

// RecordNews records a fired news event.
func (r *Recorder) RecordNews() {
	if r == nil {
		return
	}
	r.m.RecordNews()
	r.news.Inc()
}

// RecordTradeClosed records a closed position by reason.
func (r *Recorder) RecordTradeClosed(reason string, liquidated bool) {
	if r == nil {
		return
	}
	r.m.RecordTradeClosed(liquidated)
	r.trades.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence by kind.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.m.RecordError()
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAccount records the account gauges.
func (r *Recorder) RecordAccount(balance int64, openPositions int) {
	if r == nil {
		return
	}
	r.balance.Set(float64(balance))
	r.openPosition.Set(float64(openPositions))
}

// ClientConnected and ClientDisconnected track feed subscribers.
func (r *Recorder) ClientConnected() {
	if r == nil {
		return
	}
	r.m.IncrementClients()
	r.feedClients.Inc()
}

func (r *Recorder) ClientDisconnected() {
	if r == nil {
		return
	}
	r.m.DecrementClients()
	r.feedClients.Dec()
}

// SetHalted marks the market loop as halted.
func (r *Recorder) SetHalted() {
	if r == nil {
		return
	}
	r.m.SetHalted(true)
	r.errorsTotal.WithLabelValues("halt").Inc()
}
