package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"saldo/internal/amqp"
	"saldo/internal/backend"
	"saldo/internal/cache"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/dashboard"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc := dashboard.New(store.Repositories(), store.Store,
		dashboard.WithSimulations(cfg.ForecastSimulations),
		dashboard.WithLogger(logger.WithComponent(log.ComponentDashboard).Slog()),
	)

	// The API serves reads without a broker; exports answer 503 until one is reachable at start-up.
	var (
		exports    amqp.Publisher
		amqpClient *amqp.Client
	)
	amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		logger.Warn("AMQP unavailable, metrics exports disabled", log.FieldError, err)
	} else {
		exports = amqpClient
	}

	dashboards, redisClient := newDashboardCache(cfg, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Analytics:      svc,
		Exports:        exports,
		Ready:          store.Ping,
		Logger:         logger,
		DashboardCache: dashboards,
		CacheTTL:       cfg.DashboardCacheTTL,
		CacheSize:      cfg.DashboardCacheSize,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitPerMinute,
		Metrics:        metrics.New(),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting saldo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"exports", exports != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newDashboardCache returns a Redis-backed cache when configured and reachable.
// A nil cache lets the server build its in-process LRU.
func newDashboardCache(cfg *config.Config, logger *log.Logger) (cache.Cache[*dashboard.Dashboard], *redis.Client) {
	if cfg.DashboardCache != "redis" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Invalid Redis URL, using in-process dashboard cache", log.FieldError, err)
		return nil, nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, using in-process dashboard cache", log.FieldError, err)
		_ = client.Close()
		return nil, nil
	}

	logger.Info("Using Redis dashboard cache", "addr", opts.Addr)
	return cache.NewRedisCache[*dashboard.Dashboard](client, "saldo:dashboard", cfg.DashboardCacheTTL,
		logger.WithComponent(log.ComponentHTTP).Slog()), client
}
