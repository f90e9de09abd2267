package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tickwatch/internal/app"
	"tickwatch/internal/domain"
	"tickwatch/internal/event"
	"tickwatch/internal/infra/feed"
	"tickwatch/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := event.NewRegistry()
	cache := service.NewTickCache(registry, cfg.Monitor.BigTradeLots, bootstrap.Storage)

	// The session hooks close over the monitor; it is assigned before
	// Connect starts the loop, so the hooks never see a nil monitor.
	var monitor *service.Monitor
	session := feed.NewSession(feed.Options{
		URL:            cfg.Feed.WSURL,
		APIKey:         cfg.Feed.APIKey,
		ReconnectDelay: cfg.ReconnectDelay(),
		ConnectTimeout: cfg.ConnectTimeout(),
	}, feed.Hooks{
		OnTick: cache.Record,
		OnAuthenticated: func(first bool) {
			monitor.OnAuthenticated(first)
		},
	})
	monitor = service.NewMonitor(cfg, session, cache, registry)

	monitor.AddBigTradeListener(func(symbol string, tick domain.Tick, lots int64) {
		slog.Info("Big trade detected",
			slog.String("symbol", symbol),
			slog.Int64("lots", lots),
			slog.String("price", tick.Price.String()),
		)
	})

	clearHour, clearMinute, err := cfg.ClearClock()
	if err != nil {
		slog.Error("Invalid daily clear time", slog.Any("error", err))
		os.Exit(1)
	}
	cache.StartDailyClear(ctx, clearHour, clearMinute)

	if cfg.Feed.Enabled {
		if err := session.Connect(ctx); err != nil {
			slog.Error("Failed to start feed session", slog.Any("error", err))
		}
	} else {
		slog.Warn("Feed disabled, running without live ticks")
	}

	slog.InfoContext(ctx, "TickWatch operational. Press Ctrl+C to exit.")
	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	session.Shutdown(monitor.MonitoredSymbols())
}
