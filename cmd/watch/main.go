package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"market_sim/internal/infra"
)

// watch prints the tick feed of a running simulator.
func main() {
	url := flag.String("url", "ws://localhost:8090/ws", "feed websocket URL")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := make(chan infra.FeedMessage, 256)
	client := infra.NewFeedClient(*url, frames)
	if err := client.Connect(ctx); err != nil {
		slog.Error("Connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-client.Fatal():
			slog.Error("Feed unavailable", slog.Any("error", err))
			return
		case m := <-frames:
			if m.Tick == nil {
				slog.Info(m.Type, slog.String("data", string(m.Raw)))
				continue
			}
			slog.Info("tick",
				slog.String("clock", m.Tick.Clock),
				slog.Int64("price", m.Tick.Price),
				slog.Int64("volume", m.Tick.Volume),
				slog.String("vol", m.Tick.VolState),
				slog.String("zone", m.Tick.Zone),
			)
		}
	}
}
