// Package services holds the worker-side processing of metrics export requests.
package services

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks saldo/internal/services MetricsSource,MetricsExporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/dashboard"
	"saldo/internal/fx"
	"saldo/internal/metrics"
	"saldo/internal/ports"
)

type (
	// MetricsSource computes the metrics row of one month.
	MetricsSource interface {
		GetMonthMetrics(ctx context.Context, userID string, year, month int) (dashboard.MonthlyMetricsRow, error)
	}

	// MetricsExporter writes a metrics row to an external destination and
	// returns a reference to what it wrote.
	MetricsExporter interface {
		ExportMonthlyMetrics(ctx context.Context, userID string, row dashboard.MonthlyMetricsRow) (string, error)
	}
)

type ExportProcessorConfig struct {
	// Timeout bounds a single message, computation and export included (default: 30s)
	Timeout time.Duration

	// DedupSize is how many recent message IDs are remembered (default: 1024)
	DedupSize int

	// DedupTTL is how long a processed message ID is remembered (default: 1h)
	DedupTTL time.Duration

	// Metrics records outcomes when set
	Metrics *metrics.Metrics
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		Timeout:   30 * time.Second,
		DedupSize: 1024,
		DedupTTL:  time.Hour,
	}
}

// ExportProcessor turns export messages into exported metrics rows.
type ExportProcessor struct {
	source   MetricsSource
	exporter MetricsExporter
	config   ExportProcessorConfig
	seen     *cache.LRUCache[string]
	logger   *slog.Logger
}

func NewExportProcessor(source MetricsSource, exporter MetricsExporter, config ExportProcessorConfig, logger *slog.Logger) *ExportProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportProcessor{
		source:   source,
		exporter: exporter,
		config:   config,
		seen:     cache.NewLRUCache[string](config.DedupSize, config.DedupTTL),
		logger:   logger,
	}
}

// Seen exposes the dedup cache for periodic cleanup.
func (p *ExportProcessor) Seen() cache.Cleaner {
	return p.seen
}

// Handle processes one export message. Requests that can never succeed, such
// as an unknown user or a month without exchange rates, are logged and
// acknowledged; transient failures are
// returned so the message is requeued.
func (p *ExportProcessor) Handle(ctx context.Context, msg *amqp.ExportMessage) error {
	start := time.Now()
	id := msg.ID.String()
	if ref, ok := p.seen.Get(id); ok {
		p.logger.InfoContext(ctx, "Skipping already exported message", "message_id", id, "export_ref", ref)
		p.config.Metrics.ObserveExport(metrics.ExportDuplicate, 0)
		return nil
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	row, err := p.source.GetMonthMetrics(ctx, msg.UserID, msg.Year, msg.Month)
	if err != nil {
		if permanent(err) {
			p.logger.WarnContext(ctx, "Dropping export request",
				"message_id", id,
				"user_id", msg.UserID,
				"error", err)
			p.config.Metrics.ObserveExport(metrics.ExportDropped, 0)
			return nil
		}
		p.config.Metrics.ObserveExport(metrics.ExportRetry, 0)
		return fmt.Errorf("compute metrics %04d-%02d: %w", msg.Year, msg.Month, err)
	}

	ref, err := p.exporter.ExportMonthlyMetrics(ctx, msg.UserID, row)
	if err != nil {
		p.config.Metrics.ObserveExport(metrics.ExportRetry, 0)
		return fmt.Errorf("export metrics %04d-%02d: %w", msg.Year, msg.Month, err)
	}
	p.seen.Set(id, ref)
	p.config.Metrics.ObserveExport(metrics.ExportExported, time.Since(start))

	p.logger.InfoContext(ctx, "Exported monthly metrics",
		"message_id", id,
		"user_id", msg.UserID,
		"year", msg.Year,
		"month", msg.Month,
		"in_progress", row.InProgress,
		"export_ref", ref)
	return nil
}

// permanent reports errors that recomputing the same month cannot clear.
func permanent(err error) bool {
	var verr *core.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ports.ErrNotFound) ||
		errors.Is(err, fx.ErrRateUnavailable) ||
		errors.Is(err, fx.ErrRateNotResolved) ||
		errors.Is(err, core.ErrCurrencyMismatch)
}
