package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/backend"
	"saldo/internal/cache"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/dashboard"
	"saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/services"
	gsheet "saldo/internal/sheets/google"
	sheetsmem "saldo/internal/sheets/memory"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	logger.Info("Starting saldo-worker", log.FieldOperation, log.OpStartup)

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
	defer store.Close()

	svc := dashboard.New(store.Repositories(), store.Store,
		dashboard.WithSimulations(cfg.ForecastSimulations),
		dashboard.WithLogger(logger.WithComponent(log.ComponentDashboard).Slog()),
	)

	exporter, err := newExporter(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize metrics exporter", log.FieldError, err, "target", cfg.ExportTarget)
		os.Exit(1)
	}

	m := metrics.New()
	processorCfg := services.DefaultExportProcessorConfig()
	processorCfg.Metrics = m
	processor := services.NewExportProcessor(svc, exporter, processorCfg,
		logger.WithComponent(log.ComponentExport).Slog())

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", log.FieldError, err, "port", cfg.MetricsPort)
		}
	}()

	cacheMgr := cache.NewManager(logger.Slog())
	cacheMgr.Register(processor.Seen())
	cacheMgr.StartCleanup(10 * time.Minute)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown error", log.FieldError, err)
		}
		cacheMgr.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
	})

	go func() {
		err := amqpClient.ConsumeExports(ctx, processor.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err, log.FieldOperation, log.OpConsume)
			os.Exit(1)
		}
	}()

	logger.Info("Consuming metrics exports", "queue", cfg.AMQPQueue, "target", cfg.ExportTarget)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

// newExporter builds the configured export target. The memory target keeps
// rows in process and loses them on exit.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (services.MetricsExporter, error) {
	if cfg.ExportTarget != "sheets" {
		logger.Info("Using in-memory metrics exporter")
		return sheetsmem.NewExporter(), nil
	}

	exporter, err := gsheet.NewMetricsExporter(ctx, gsheet.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleMetricsSheetName,
		Credentials: gsheet.Credentials{
			ClientFile: cfg.GoogleOAuthClientFile,
			ClientJSON: cfg.GoogleOAuthClientJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
		},
	}, logger.WithComponent(log.ComponentExport).Slog())
	if err != nil {
		return nil, err
	}
	if err := exporter.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets metrics exporter initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleMetricsSheetName)
	return exporter, nil
}
