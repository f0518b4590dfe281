package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"market_sim/internal/app"
	"market_sim/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	pprofAddr := flag.String("pprof", "", "pprof listen address, e.g. localhost:6060")
	flag.Parse()

	// 1. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, *configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()
	cfg := bootstrap.Config

	// 4. Tick feed + /metrics
	if cfg.Feed.Enabled {
		go func() {
			if err := infra.ServeFeed(ctx, cfg.Feed, bootstrap.Hub, bootstrap.Registry); err != nil {
				slog.Error("Feed server failed", slog.Any("error", err))
			}
		}()
	}

	slog.InfoContext(ctx, "Simulation starting",
		slog.Int("days", cfg.Sim.Days),
		slog.Bool("realtime", cfg.Sim.Realtime),
		slog.String("date", bootstrap.Game.Date().Format("2006-01-02")),
	)

	// 5. Play
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("Simulation failed", slog.Any("error", err))
		os.Exit(1)
	}

	m := infra.GlobalMetrics.Snapshot()
	slog.InfoContext(ctx, "Simulation finished",
		slog.Uint64("ticks", m.TicksEmitted),
		slog.Uint64("news", m.NewsFired),
		slog.Uint64("trades", m.TradesClosed),
		slog.Uint64("liquidations", m.Liquidations),
		slog.Uint64("errors", m.ErrorsTotal),
		slog.Int64("avg_tick_ns", m.AvgLatencyNs),
	)
}
