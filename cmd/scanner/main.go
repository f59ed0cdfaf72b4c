package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"scannerpro/internal/api"
	"scannerpro/internal/config"
	"scannerpro/internal/fetcher"
	"scannerpro/internal/logger"
	"scannerpro/internal/metrics"
	"scannerpro/internal/scheduler"
	"scannerpro/internal/store"
	"scannerpro/internal/strategy"
	"scannerpro/internal/syncer"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()
	zlog.Info("scanner starting", zap.String("config", cfgPath))

	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, zlog)
	if err != nil {
		zlog.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	m := metrics.New()
	yahoo := fetcher.NewYahooFetcher(cfg.Proxy, cfg.FetchTimeout(), zlog)
	zlog.Info("data source ready", zap.String("source", yahoo.Name()))

	sy := syncer.New(st, yahoo, zlog, m, syncer.Config{
		LookbackDays:  cfg.Source.LookbackDays,
		RetryAttempts: cfg.Source.RetryAttempts,
		RetryDelay:    cfg.RetryDelay(),
		FetchTimeout:  cfg.FetchTimeout(),
	})
	engine := strategy.NewEngine(st, zlog, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Schedule.SyncCron != "" {
		sched := scheduler.New(ctx, sy, zlog)
		if err := sched.Register(cfg.Schedule.SyncCron); err != nil {
			zlog.Fatal("register sync schedule", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	if os.Getenv("SYNC_ON_START") == "true" {
		zlog.Info("SYNC_ON_START enabled, syncing watch-list now")
		go sy.SyncAll(ctx)
	}

	server := api.NewServer(st, sy, engine, zlog, m)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // refresh of a large watch-list is slow
	}

	go func() {
		zlog.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	zlog.Info("scanner stopped")
}
