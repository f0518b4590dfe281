package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"market_sim/internal/domain"
	"market_sim/internal/engine"
	"market_sim/internal/event"
	"market_sim/internal/execution"
	"market_sim/internal/infra"
	"market_sim/internal/infra/storage"
	"market_sim/internal/news"
	"market_sim/internal/regime"
	"market_sim/internal/service"
	"market_sim/internal/strategy"
	"market_sim/pkg/quant"

	"github.com/google/uuid"
)

// Options configures a Game.
type Options struct {
	Seed            uint64
	Level           int
	StartDate       time.Time
	OpenPrice       quant.Price
	StartingBalance int64
	MaxLeverage     int64
	IntradayOnly    bool
	Speed           float64
	KeepSnapshots   int

	Market engine.Config
	Regime regime.Config
	News   news.Config
	Gap    GapConfig

	// News at or above BigNewsImpact also override volume for a few ticks
	// and tilt the rest of the session: drift moves by impact*BigNewsDrift
	// and volatility is scaled by BigNewsVol.
	BigNewsImpact float64
	BigNewsVolume float64
	BigNewsTicks  int
	BigNewsDrift  float64
	BigNewsVol    float64
}

// DefaultOptions returns a level 1 game starting at 30,000.
func DefaultOptions() Options {
	return Options{
		Seed:            1,
		Level:           1,
		StartDate:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		OpenPrice:       30000,
		StartingBalance: 10_000_000,
		MaxLeverage:     execution.DefaultMaxLeverage,
		IntradayOnly:    true,
		Speed:           1,
		KeepSnapshots:   5,
		Market:          engine.DefaultConfig(),
		Regime:          regime.DefaultConfig(),
		News:            news.DefaultConfig(),
		Gap:             DefaultGapConfig(),
		BigNewsImpact:   0.6,
		BigNewsVolume:   25000,
		BigNewsTicks:    3,
		BigNewsDrift:    1e-5,
		BigNewsVol:      1.25,
	}
}

// Journal appends session events.
type Journal interface {
	SaveEvent(ctx context.Context, ev event.Event) error
}

// SnapshotStore persists end-of-day snapshots.
type SnapshotStore interface {
	Save(snap *storage.Snapshot) error
	Cleanup(keepCount int) error
}

// Broadcaster pushes non-tick frames to feed clients.
type Broadcaster interface {
	Broadcast(kind string, data any)
}

// Deps are the optional collaborators of a Game. Nil fields are skipped.
type Deps struct {
	Strategy  strategy.Strategy
	Journal   Journal
	History   domain.HistoryRepository
	Snapshots SnapshotStore
	View      *service.MarketView
	Feed      Broadcaster
	Sinks     []domain.TickSink
	Recorder  *infra.Recorder
	DumpPath  string
}

// sessionFrame is broadcast when a trading day opens.
type sessionFrame struct {
	SessionID string   `json:"session_id"`
	Date      string   `json:"date"`
	Regime    string   `json:"regime"` // displayed, possibly wrong
	Open      int64    `json:"open"`
	PrevClose int64    `json:"prev_close"`
	Anomaly   string   `json:"anomaly,omitempty"`
	Weekend   []string `json:"weekend,omitempty"`
}

// Game runs consecutive trading days over one set of engines. Outside of
// a running day every method must be called from one goroutine; during
// RunDayRealtime the driver goroutine owns the engines.
type Game struct {
	opts Options
	deps Deps
	ctx  context.Context

	regime  *regime.Process
	news    *news.Engine
	trading *execution.TradingEngine
	market  *engine.MarketEngine
	gapRNG  *quant.RNG
	cal     *Calendar

	day       int
	seq       uint64
	lastClose quant.Price
	lastDate  time.Time

	// Intraday state, reset by PrepareDay.
	sessionID    string
	cond         regime.DailyCondition
	anomaly      regime.Anomaly
	bias         engine.Bias
	open         quant.Price
	volume       int64
	newsFired    int
	closedAtOpen int
	prepared     bool
	lastRecord   domain.DailyRecord
	endErr       error
}

// New creates a game at its first trading day.
func New(opts Options, deps Deps, startSeq uint64) (*Game, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	g := newGame(opts, deps, 0)
	g.trading = execution.NewTradingEngine(opts.StartingBalance, opts.MaxLeverage)
	g.cal = NewCalendar(opts.StartDate)
	g.lastClose = quant.RoundPrice(opts.OpenPrice.Float())
	g.seq = startSeq
	r := g.regime.InitFirstQuarter()
	slog.Info("Game created",
		slog.Uint64("seed", opts.Seed),
		slog.String("date", g.cal.String()),
		slog.String("regime", r.String()),
	)
	return g, nil
}

// Restore resumes a game from an end-of-day snapshot. The random streams
// are re-derived from the seed and the day count, so a restored game is
// reproducible but does not replay the uninterrupted stream.
func Restore(opts Options, deps Deps, snap *storage.Snapshot) (*Game, error) {
	if snap == nil {
		return nil, errors.New("restore: nil snapshot")
	}
	opts.Seed = snap.Seed
	if snap.Level > 0 {
		opts.Level = snap.Level
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	last, err := parseDate(snap.Date)
	if err != nil {
		return nil, fmt.Errorf("restore date %q: %w", snap.Date, err)
	}

	g := newGame(opts, deps, snap.Day)
	if err := g.regime.Restore(snap.Regime); err != nil {
		return nil, fmt.Errorf("restore regime: %w", err)
	}
	g.news.Restore(snap.News)
	if g.trading, err = execution.Restore(snap.Trading); err != nil {
		return nil, fmt.Errorf("restore trading: %w", err)
	}
	// The configured cap wins over the saved one.
	if opts.MaxLeverage != g.trading.MaxLeverage() {
		if err := g.trading.SetMaxLeverage(opts.MaxLeverage); err != nil {
			return nil, err
		}
	}
	g.cal = NewCalendar(last)
	g.cal.Advance()
	g.lastDate = last
	g.lastClose = quant.Price(snap.LastClose)
	g.day = snap.Day
	g.seq = snap.Seq

	slog.Info("Game restored",
		slog.Int("day", g.day),
		slog.String("next_date", g.cal.String()),
		slog.Int64("last_close", snap.LastClose),
	)
	return g, nil
}

func newGame(opts Options, deps Deps, day int) *Game {
	root := quant.NewRNG(opts.Seed ^ uint64(day)*0x9e3779b97f4a7c15)
	regimeRNG, previewRNG := root.Fork(), root.Fork()
	newsRNG, marketRNG, gapRNG := root.Fork(), root.Fork(), root.Fork()

	g := &Game{
		opts:   opts,
		deps:   deps,
		ctx:    context.Background(),
		regime: regime.NewProcess(opts.Regime, regimeRNG, previewRNG),
		news:   news.NewEngine(opts.News, newsRNG),
		market: engine.NewMarketEngine(opts.Market, marketRNG, nil),
		gapRNG: gapRNG,
	}
	if opts.Speed > 0 {
		_ = g.market.SetSpeed(opts.Speed)
	}
	return g
}

// sessionID is stable for a seed and date, so replaying a seed
// overwrites its own history rows.
func sessionID(seed uint64, date time.Time) string {
	name := fmt.Sprintf("%d/%s", seed, date.Format(dateLayout))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (o Options) validate() error {
	if o.Level < 1 || o.Level > 5 {
		return fmt.Errorf("level %d: %w", o.Level, domain.ErrInvalidLevel)
	}
	if o.OpenPrice < quant.MinPrice {
		return fmt.Errorf("open price %d: %w", o.OpenPrice, domain.ErrInvalidPrice)
	}
	if o.MaxLeverage < 1 {
		return fmt.Errorf("max leverage %d: %w", o.MaxLeverage, domain.ErrInvalidLeverage)
	}
	return nil
}

// PrepareDay applies calendar boundaries, settles the overnight gap and
// opens the market engine for the current trading day.
func (g *Game) PrepareDay(ctx context.Context) error {
	if g.prepared {
		return fmt.Errorf("prepare %s: %w", g.cal, domain.ErrEngineState)
	}
	g.ctx = ctx
	date := g.cal.Date()
	first := g.lastDate.IsZero()

	if first || !SameWeek(g.lastDate, date) {
		g.news.StartWeek()
	}
	if !first && !SameQuarter(g.lastDate, date) {
		r := g.regime.AdvanceQuarter()
		slog.Info("Regime quarter advanced", slog.Int("quarter", g.regime.Quarter()), slog.String("regime", r.String()))
	}

	current := g.regime.Current()
	params := g.regime.Params(current)
	g.cond = g.regime.GenerateDailyCondition(g.opts.Level)
	g.anomaly = g.regime.MonthlyAnomaly(int(date.Month()), g.opts.Level)

	g.sessionID = sessionID(g.opts.Seed, date)
	g.volume, g.newsFired, g.endErr = 0, 0, nil
	g.closedAtOpen = len(g.trading.ClosedTrades())

	open := g.lastClose
	if g.day > 0 {
		open = OvernightGap(g.gapRNG, g.lastClose, params.VolMult, g.opts.Gap)
	}
	g.open = open

	g.journal(&event.SessionStartedEvent{
		BaseEvent: g.base(domain.SessionOpen),
		Date:      g.cal.String(),
		Regime:    current.String(),
		Open:      int64(open),
	})
	g.settleOvernight(open)

	g.bias = dayBias(params, g.cond, g.anomaly)
	g.market.OpenSession(open, g.bias)
	schedule := g.news.ScheduleSession(current, g.sessionID)
	if g.deps.Strategy != nil {
		g.deps.Strategy.Reset()
	}

	frame := sessionFrame{
		SessionID: g.sessionID,
		Date:      g.cal.String(),
		Regime:    g.cond.DisplaySentiment.String(),
		Open:      int64(open),
		PrevClose: int64(g.lastClose),
	}
	if g.anomaly.Visible {
		frame.Anomaly = g.anomaly.Tag
	}
	if mod := g.news.ActiveModifier(); mod != nil {
		frame.Weekend = mod.Headlines
	}
	if g.deps.View != nil {
		g.deps.View.OpenSession(g.sessionID, frame.Date, frame.Regime, open, g.lastClose)
		for _, h := range frame.Weekend {
			g.deps.View.AddHeadline(h)
		}
	}
	if g.deps.Feed != nil {
		g.deps.Feed.Broadcast("session", frame)
	}
	g.publishAccount(open)

	g.prepared = true
	slog.Info("Session prepared",
		slog.String("session_id", g.sessionID),
		slog.String("date", frame.Date),
		slog.String("regime", current.String()),
		slog.String("displayed", frame.Regime),
		slog.Int64("open", int64(open)),
		slog.Int("news", len(schedule)),
	)
	return nil
}

// dayBias turns the regime and calendar into the engine's macro input.
// A strength of 0.5 leaves the regime drift unchanged.
func dayBias(p regime.Params, cond regime.DailyCondition, a regime.Anomaly) engine.Bias {
	return engine.Bias{
		Drift:       p.Drift * cond.ActualStrength * 2,
		VolMult:     p.VolMult,
		AnomalyVol:  a.VolBias,
		AnomalyBias: a.DriftBias,
	}
}

// settleOvernight applies protective orders and liquidations at the gapped
// open to positions carried over the night.
func (g *Game) settleOvernight(open quant.Price) {
	if len(g.trading.Positions()) == 0 {
		return
	}
	g.trading.RecalculateUnrealized(open)
	for _, tr := range g.trading.CheckSLTP(open) {
		reason := tr.Kind.Reason()
		if res, err := g.trading.ClosePosition(tr.PositionID, open, reason); err == nil {
			g.recordClose(res, domain.SessionOpen)
		}
	}
	for _, id := range g.trading.CheckLiquidations(open) {
		if res, err := g.trading.ClosePosition(id, open, domain.CloseOvernight); err == nil {
			g.recordClose(res, domain.SessionOpen)
		}
	}
}

// RunDay plays the current day without real timers: each step advances
// by a drawn tick interval. Returns the day's record.
func (g *Game) RunDay(ctx context.Context) (domain.DailyRecord, error) {
	if !g.prepared {
		if err := g.PrepareDay(ctx); err != nil {
			return domain.DailyRecord{}, err
		}
	}
	h := g.handlers()
	if err := g.market.Start(); err != nil {
		return domain.DailyRecord{}, err
	}

	for g.market.State() != engine.StateEnded {
		if err := ctx.Err(); err != nil {
			g.market.Stop()
			return domain.DailyRecord{}, err
		}
		res := g.market.Advance(g.market.NextInterval())
		dispatch(g.market, h, res)
	}
	return g.lastRecord, g.endErr
}

// RunDayRealtime plays the current day on real timers through an
// engine.Driver. It blocks until the session ends or ctx is canceled.
func (g *Game) RunDayRealtime(ctx context.Context) (domain.DailyRecord, error) {
	if !g.prepared {
		if err := g.PrepareDay(ctx); err != nil {
			return domain.DailyRecord{}, err
		}
	}
	done := make(chan struct{})
	h := g.handlers()
	onEnd := h.OnSessionEnd
	h.OnSessionEnd = func(e *engine.MarketEngine, t domain.Tick) {
		onEnd(e, t)
		close(done)
	}

	d := engine.NewDriver(g.market, h, 64)
	if g.deps.DumpPath != "" {
		d.SetDumpPath(g.deps.DumpPath)
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.halt(r)
				panic(r)
			}
		}()
		d.Run(runCtx)
	}()

	if err := d.Start(ctx); err != nil {
		return domain.DailyRecord{}, err
	}
	select {
	case <-done:
		return g.lastRecord, g.endErr
	case <-ctx.Done():
		return domain.DailyRecord{}, ctx.Err()
	}
}

func dispatch(e *engine.MarketEngine, h engine.Handlers, res engine.StepResult) {
	if res.Tick == nil {
		return
	}
	h.OnTick(e, *res.Tick)
	if res.LunchStarted {
		h.OnLunchStart(e, *res.Tick)
	}
	if res.SessionEnded {
		h.OnSessionEnd(e, *res.Tick)
	}
}

func (g *Game) handlers() engine.Handlers {
	return engine.Handlers{
		OnTick:       g.onTick,
		OnLunchStart: g.onLunch,
		OnSessionEnd: g.onSessionEnd,
	}
}

func (g *Game) onTick(e *engine.MarketEngine, t domain.Tick) {
	start := time.Now()
	g.volume += t.Volume

	ev := event.AcquireTickEvent()
	ev.BaseEvent = g.base(t.Timestamp)
	ev.Price, ev.High, ev.Low = int64(t.Price), int64(t.High), int64(t.Low)
	ev.Volume = t.Volume
	ev.VolState, ev.Zone = t.VolState.String(), t.Zone.String()
	g.journal(ev)
	event.ReleaseTickEvent(ev)

	for _, s := range g.deps.Sinks {
		s.PublishTick(t)
	}
	for _, n := range g.news.CheckTriggers(t.Timestamp) {
		g.fireNews(e, n, t.Timestamp)
	}

	g.trading.RecalculateUnrealized(t.Price)
	for _, tr := range g.trading.CheckSLTP(t.Price) {
		if res, err := g.trading.ClosePosition(tr.PositionID, t.Price, tr.Kind.Reason()); err == nil {
			g.recordClose(res, t.Timestamp)
		}
	}
	for _, id := range g.trading.CheckLiquidations(t.Price) {
		if res, err := g.trading.ClosePosition(id, t.Price, domain.CloseLiquidation); err == nil {
			g.recordClose(res, t.Timestamp)
		}
	}

	if g.deps.Strategy != nil && e.State() != engine.StateEnded {
		g.runStrategy(t)
	}
	g.publishAccount(t.Price)
	g.deps.Recorder.RecordTick(int64(t.Price), t.Volume, time.Since(start))
}

func (g *Game) fireNews(e *engine.MarketEngine, n news.Event, minute float64) {
	force := g.news.ExternalForce(n, e.Price().Float())
	e.InjectExternalForce(force)
	if math.Abs(n.Impact) >= g.opts.BigNewsImpact {
		e.SetAlgoVolume(g.opts.BigNewsVolume, g.opts.BigNewsTicks)
		g.tiltBias(e, n.Impact)
	}
	g.newsFired++

	g.journal(&event.NewsEvent{
		BaseEvent: g.base(minute),
		NewsID:    n.ID,
		Headline:  n.Headline,
		Impact:    n.Impact,
		Force:     force,
	})
	if g.deps.View != nil {
		g.deps.View.AddHeadline(n.Headline)
	}
	if g.deps.Feed != nil {
		g.deps.Feed.Broadcast("news", n)
	}
	g.deps.Recorder.RecordNews()
	slog.Info("News triggered",
		slog.String("id", n.ID),
		slog.String("headline", n.Headline),
		slog.Float64("impact", n.Impact),
		slog.String("clock", domain.FormatMinute(minute)),
	)
}

// tiltBias shifts the session's macro bias after big news. Volatility is
// raised once per session; drift accumulates.
func (g *Game) tiltBias(e *engine.MarketEngine, impact float64) {
	b := e.Status().Bias
	b.AnomalyBias += impact * g.opts.BigNewsDrift
	if g.opts.BigNewsVol > 0 {
		b.VolMult = g.bias.VolMult * g.opts.BigNewsVol
	}
	e.SetBias(b)
}

func (g *Game) runStrategy(t domain.Tick) {
	for _, a := range g.deps.Strategy.OnTick(t, g.trading.Positions()) {
		switch a.Type {
		case strategy.ActionClose:
			res, err := g.trading.ClosePosition(a.PositionID, t.Price, domain.CloseManual)
			if err != nil {
				slog.Warn("Autopilot close rejected", slog.Int64("id", a.PositionID), slog.Any("error", err))
				continue
			}
			g.recordClose(res, t.Timestamp)
		case strategy.ActionOpen:
			pos, err := g.trading.OpenPosition(a.Direction, a.Shares, t.Price, a.Leverage)
			if err != nil {
				slog.Warn("Autopilot open rejected", slog.String("direction", string(a.Direction)), slog.Any("error", err))
				continue
			}
			g.journal(&event.PositionOpenedEvent{
				BaseEvent:  g.base(t.Timestamp),
				PositionID: pos.ID,
				Direction:  string(pos.Direction),
				Shares:     pos.Shares,
				Price:      int64(pos.EntryPrice),
				Leverage:   pos.Leverage,
				Margin:     pos.Margin,
			})
			if a.StopLoss != nil || a.TakeProfit != nil {
				if _, err := g.trading.SetSLTP(pos.ID, a.StopLoss, a.TakeProfit); err != nil {
					slog.Warn("Autopilot SL/TP rejected", slog.Int64("id", pos.ID), slog.Any("error", err))
				}
			}
		}
	}
}

func (g *Game) onLunch(e *engine.MarketEngine, t domain.Tick) {
	slog.Info("Lunch break", slog.String("clock", t.Clock()), slog.Int64("price", int64(t.Price)))
	if err := e.ResumeFromLunch(); err != nil {
		slog.Error("Resume from lunch failed", slog.Any("error", err))
	}
}

func (g *Game) onSessionEnd(e *engine.MarketEngine, t domain.Tick) {
	closePrice := t.Price
	if g.opts.IntradayOnly {
		for _, res := range g.trading.ForceCloseAll(closePrice, domain.CloseSessionEnd) {
			g.recordClose(res, t.Timestamp)
		}
	}
	g.publishAccount(closePrice)

	date := g.cal.Date()
	next := g.cal.Next()
	g.news.EndSession()
	if p := g.news.GeneratePreview(g.regime.Current()); p != nil {
		slog.Info("News preview", slog.String("headline", p.Headline))
		if g.deps.View != nil {
			g.deps.View.AddHeadline(p.Headline)
		}
	}
	if !SameWeek(date, next) {
		mod := g.news.GenerateWeekendNews()
		slog.Info("Weekend news", slog.Int("items", len(mod.Headlines)), slog.Float64("drift_bias", mod.DriftBias))
	}

	high, low := e.SessionRange()
	rec := domain.DailyRecord{
		SessionID:  g.sessionID,
		Date:       date,
		Regime:     g.regime.Current().String(),
		Open:       int64(g.open),
		High:       int64(max(high, g.open, closePrice)),
		Low:        int64(min(low, g.open, closePrice)),
		Close:      int64(closePrice),
		Volume:     g.volume,
		Ticks:      e.Status().Ticks,
		NewsFired:  g.newsFired,
		EndBalance: g.trading.Balance(),
	}
	for _, tr := range g.trading.ClosedTrades()[g.closedAtOpen:] {
		rec.Trades++
		if tr.IsWin() {
			rec.Wins++
		}
		rec.RealizedPnL += tr.PnL
	}
	g.lastRecord = rec

	g.journal(&event.SessionEndedEvent{
		BaseEvent: g.base(t.Timestamp),
		Close:     rec.Close,
		Ticks:     rec.Ticks,
		Balance:   rec.EndBalance,
	})
	histErr := g.saveHistory(&rec, next)

	g.lastClose = closePrice
	g.lastDate = date
	g.day++
	g.prepared = false
	g.endErr = errors.Join(histErr, g.saveSnapshot())
	g.cal.Advance()

	slog.Info("Session ended",
		slog.String("date", date.Format(dateLayout)),
		slog.Int64("close", rec.Close),
		slog.Int64("ticks", rec.Ticks),
		slog.Int("trades", rec.Trades),
		slog.Int64("realized_pnl", rec.RealizedPnL),
		slog.Int64("balance", rec.EndBalance),
	)
}

// saveHistory stores the daily record and rolls month and year
// aggregates when next falls outside them.
func (g *Game) saveHistory(rec *domain.DailyRecord, next time.Time) error {
	repo := g.deps.History
	if repo == nil {
		return nil
	}
	if err := repo.SaveDaily(g.ctx, rec); err != nil {
		g.deps.Recorder.RecordError("history")
		return fmt.Errorf("save daily: %w", err)
	}
	if next.Month() == rec.Date.Month() && next.Year() == rec.Date.Year() {
		return nil
	}

	from, to := monthBounds(rec.Date)
	days, err := repo.DailyBetween(g.ctx, from, to)
	if err != nil {
		return fmt.Errorf("load month: %w", err)
	}
	m := domain.AggregateMonth(rec.Date.Year(), int(rec.Date.Month()), g.anomaly.Tag, days)
	if err := repo.SaveMonthly(g.ctx, &m); err != nil {
		return fmt.Errorf("save monthly: %w", err)
	}
	slog.Info("Month closed", slog.Int("year", m.Year), slog.Int("month", m.Month), slog.Int64("close", m.Close))

	if next.Year() == rec.Date.Year() {
		return nil
	}
	months, err := repo.Monthly(g.ctx, rec.Date.Year())
	if err != nil {
		return fmt.Errorf("load year: %w", err)
	}
	y := domain.AggregateYear(rec.Date.Year(), months)
	if err := repo.SaveYearly(g.ctx, &y); err != nil {
		return fmt.Errorf("save yearly: %w", err)
	}
	slog.Info("Year closed", slog.Int("year", y.Year), slog.Int64("close", y.Close))
	return nil
}

func (g *Game) saveSnapshot() error {
	if g.deps.Snapshots == nil {
		return nil
	}
	snap := g.Snapshot()
	if err := g.deps.Snapshots.Save(&snap); err != nil {
		g.deps.Recorder.RecordError("snapshot")
		return fmt.Errorf("save snapshot: %w", err)
	}
	if g.opts.KeepSnapshots > 0 {
		if err := g.deps.Snapshots.Cleanup(g.opts.KeepSnapshots); err != nil {
			slog.Warn("Snapshot cleanup failed", slog.Any("error", err))
		}
	}
	return nil
}

// Snapshot captures the state carried between days. Date is the last
// played day.
func (g *Game) Snapshot() storage.Snapshot {
	date := g.lastDate
	if date.IsZero() {
		date = g.cal.Date().AddDate(0, 0, -1)
	}
	return storage.Snapshot{
		Seq:       g.seq,
		Seed:      g.opts.Seed,
		Day:       g.day,
		Date:      date.Format(dateLayout),
		LastClose: int64(g.lastClose),
		Level:     g.opts.Level,
		Regime:    g.regime.Snapshot(),
		Trading:   g.trading.Snapshot(),
		News:      g.news.Snapshot(),
	}
}

func (g *Game) recordClose(res domain.TradeResult, minute float64) {
	g.journal(&event.PositionClosedEvent{
		BaseEvent:  g.base(minute),
		PositionID: res.PositionID,
		Reason:     string(res.Reason),
		Price:      int64(res.ExitPrice),
		PnL:        res.PnL,
		Refund:     res.Refund,
	})
	liquidated := res.Reason == domain.CloseLiquidation || res.Reason == domain.CloseOvernight
	g.deps.Recorder.RecordTradeClosed(string(res.Reason), liquidated)
}

func (g *Game) publishAccount(price quant.Price) {
	total, effective := g.trading.RecalculateUnrealized(price)
	positions := g.trading.Positions()
	if g.deps.View != nil {
		g.deps.View.UpdateAccount(service.Account{
			Balance:    g.trading.Balance(),
			Equity:     g.trading.Equity(),
			Unrealized: total,
			Effective:  effective,
			Positions:  positions,
		})
	}
	g.deps.Recorder.RecordAccount(effective, len(positions))
}

func (g *Game) halt(r any) {
	g.journal(&event.SystemHaltEvent{
		BaseEvent: g.base(g.market.Now()),
		Reason:    fmt.Sprint(r),
	})
	g.deps.Recorder.SetHalted()
}

func (g *Game) base(minute float64) event.BaseEvent {
	g.seq++
	return event.BaseEvent{
		Seq:       g.seq,
		Ts:        time.Now().UnixMilli(),
		SessionID: g.sessionID,
		Minute:    minute,
	}
}

func (g *Game) journal(ev event.Event) {
	if g.deps.Journal == nil {
		return
	}
	if err := g.deps.Journal.SaveEvent(g.ctx, ev); err != nil {
		slog.Error("Journal write failed", slog.String("type", ev.GetType().String()), slog.Any("error", err))
		g.deps.Recorder.RecordError("journal")
	}
}

// Day returns the number of completed trading days.
func (g *Game) Day() int { return g.day }

// Date returns the trading day that plays next.
func (g *Game) Date() time.Time { return g.cal.Date() }

// Seq returns the last journaled sequence number.
func (g *Game) Seq() uint64 { return g.seq }

// LastClose returns the previous session's close.
func (g *Game) LastClose() quant.Price { return g.lastClose }

// Condition returns today's sentiment reading.
func (g *Game) Condition() regime.DailyCondition { return g.cond }

// Trading exposes the book for manual orders between sessions.
func (g *Game) Trading() *execution.TradingEngine { return g.trading }

// Regime exposes the regime process for previews.
func (g *Game) Regime() *regime.Process { return g.regime }
