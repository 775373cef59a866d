package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/wms/internal/catalog"
	"github.com/JonMunkholm/wms/internal/config"
	"github.com/JonMunkholm/wms/internal/logging"
	"github.com/JonMunkholm/wms/internal/metrics"
	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/pipeline"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/JonMunkholm/wms/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		applied, err := store.Migrate(ctx, pool)
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("schema up to date", "applied", applied)
	}

	slog.Info("modules registered", "count", len(catalog.Keys()), "modules", modules.Keys())

	collector := metrics.New()
	limiter := pipeline.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWait)
	collector.Gauge("imports_active", "Imports currently holding a limiter slot.", func() float64 {
		return float64(limiter.Active())
	})
	collector.Gauge("db_pool_acquired_conns", "Database connections currently in use.", func() float64 {
		return float64(pool.Stat().AcquiredConns())
	})

	p := pipeline.New(modules.Default, store.NewResolver(),
		pipeline.WithLimiter(limiter),
		pipeline.WithRecorder(collector),
	)

	opts := []web.Option{web.WithHealthCheck(pool.Ping)}
	if cfg.Metrics.Enabled {
		opts = append(opts, web.WithMetrics(collector))
	}
	server := web.NewServer(cfg, pool, modules.Default, p, opts...)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if n := limiter.Active(); n > 0 {
			slog.Info("waiting for imports to finish", "active", n)
			if err := limiter.Drain(shutdownCtx); err != nil {
				slog.Warn("imports did not finish in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-drained
	slog.Info("server stopped")
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
