package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"market_sim/internal/domain"
	"market_sim/internal/infra"
	"market_sim/internal/infra/storage"
	"market_sim/internal/service"
	"market_sim/internal/session"
	"market_sim/internal/strategy"
	"market_sim/pkg/quant"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	settingLastSeed = "last_seed"
	settingLevel    = "player_level"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Storage   *storage.Storage
	Journal   *storage.EventStore
	Snapshots *storage.SnapshotManager
	Registry  *prometheus.Registry
	Recorder  *infra.Recorder
	Hub       *infra.FeedHub
	View      *service.MarketView
	Game      *session.Game
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, opens storage and builds the game.
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("Bootstrapping market simulator", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (history DB, journal, snapshots)
	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store

	journal, err := storage.NewEventStore(cfg.Storage.JournalPath)
	if err != nil {
		return err
	}
	b.Journal = journal
	b.Snapshots = storage.NewSnapshotManager(cfg.Storage.SnapshotDir)
	slog.Info("Storage initialized", slog.String("journal", cfg.Storage.JournalPath))

	// 4. Metrics, feed and read model
	b.Registry = prometheus.NewRegistry()
	b.Registry.MustRegister(collectors.NewGoCollector())
	b.Recorder = infra.NewRecorder(b.Registry, infra.GlobalMetrics)
	b.Hub = infra.NewFeedHub(b.Recorder)
	b.View = service.NewMarketView(0)

	// 5. Game
	game, err := b.buildGame(ctx)
	if err != nil {
		return err
	}
	b.Game = game
	return nil
}

func (b *Bootstrap) buildGame(ctx context.Context) (*session.Game, error) {
	cfg := b.Config
	opts := Options(cfg)

	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	if lvl, err := b.Storage.GetConfig(ctx, settingLevel); err == nil && cfg.Sim.Level == 1 {
		// A stored level wins over the default one.
		if v, err := strconv.Atoi(lvl); err == nil && v >= 1 && v <= 5 {
			opts.Level = v
		}
	} else if err != nil && !errors.Is(err, domain.ErrConfigNotFound) {
		return nil, err
	}

	deps := session.Deps{
		Journal:   b.Journal,
		History:   b.Storage,
		Snapshots: b.Snapshots,
		View:      b.View,
		Feed:      b.Hub,
		Sinks:     []domain.TickSink{b.View, b.Hub},
		Recorder:  b.Recorder,
		DumpPath:  filepath.Join(filepath.Dir(cfg.Storage.JournalPath), "panic_dump.json"),
	}
	if cfg.Autopilot.Enabled {
		deps.Strategy = strategy.NewSMACrossStrategy(strategy.SMACrossConfig{
			ShortPeriod: cfg.Autopilot.ShortWindow,
			LongPeriod:  cfg.Autopilot.LongWindow,
			Shares:      cfg.Autopilot.Shares,
			Leverage:    cfg.Autopilot.Leverage,
			StopPct:     cfg.Autopilot.StopPct,
			TakePct:     cfg.Autopilot.TakePct,
		})
	}

	lastSeq, err := b.Journal.GetLastSeq(ctx)
	if err != nil {
		return nil, err
	}

	var game *session.Game
	if cfg.Sim.Resume {
		snap, err := b.Snapshots.LoadLatest()
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		if snap != nil {
			// The journal may run ahead of the snapshot after a crash mid-day.
			snap.Seq = max(snap.Seq, lastSeq)
			game, err = session.Restore(opts, deps, snap)
			if err != nil {
				return nil, err
			}
			opts.Seed = snap.Seed
		}
	}
	if game == nil {
		if game, err = session.New(opts, deps, lastSeq); err != nil {
			return nil, err
		}
	}

	if err := b.Storage.SetConfig(ctx, settingLastSeed, strconv.FormatUint(opts.Seed, 10)); err != nil {
		slog.Warn("Failed to store seed", slog.Any("error", err))
	}
	if err := b.Storage.SetConfig(ctx, settingLevel, strconv.Itoa(opts.Level)); err != nil {
		slog.Warn("Failed to store level", slog.Any("error", err))
	}
	return game, nil
}

// Options maps the application config onto session options.
func Options(cfg *infra.Config) session.Options {
	opts := session.DefaultOptions()
	opts.Seed = cfg.Sim.Seed
	opts.Level = cfg.Sim.Level
	opts.StartDate = cfg.Sim.StartTime()
	opts.OpenPrice = quant.Price(cfg.Sim.OpenPrice)
	opts.StartingBalance = cfg.Sim.StartingBalance
	opts.MaxLeverage = cfg.Sim.MaxLeverage
	opts.IntradayOnly = cfg.Sim.IntradayOnly
	opts.Speed = cfg.Sim.Speed
	opts.KeepSnapshots = cfg.Storage.KeepSnapshots
	return opts
}

// Run plays cfg.Sim.Days trading days, headless or on real timers.
func (b *Bootstrap) Run(ctx context.Context) error {
	for i := 0; i < b.Config.Sim.Days; i++ {
		var (
			rec domain.DailyRecord
			err error
		)
		if b.Config.Sim.Realtime {
			rec, err = b.Game.RunDayRealtime(ctx)
		} else {
			rec, err = b.Game.RunDay(ctx)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("day %d: %w", b.Game.Day()+1, err)
		}
		slog.InfoContext(ctx, "Day complete",
			slog.String("date", rec.Date.Format(time.DateOnly)),
			slog.Int64("open", rec.Open),
			slog.Int64("close", rec.Close),
			slog.Int("news", rec.NewsFired),
			slog.Int("trades", rec.Trades),
			slog.Int64("balance", rec.EndBalance),
		)
	}
	return nil
}

// Close releases storage and disconnects feed clients.
func (b *Bootstrap) Close() {
	if b.Hub != nil {
		b.Hub.Close()
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("Journal close failed", slog.Any("error", err))
		}
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Storage close failed", slog.Any("error", err))
		}
	}
}
