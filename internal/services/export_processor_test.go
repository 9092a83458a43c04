package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/dashboard"
	"saldo/internal/fx"
	"saldo/internal/memory"
	"saldo/internal/metrics"
	"saldo/internal/ports"
	"saldo/internal/services"
	"saldo/internal/services/mocks"
	sheetsmem "saldo/internal/sheets/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultExportProcessorConfig(t *testing.T) {
	cfg := services.DefaultExportProcessorConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 1024, cfg.DedupSize)
	assert.Equal(t, time.Hour, cfg.DedupTTL)
}

func TestExportProcessorHandle(t *testing.T) {
	row := dashboard.MonthlyMetricsRow{Year: 2024, Month: 2, Income: 2000, Expense: 1380}

	tests := []struct {
		name       string
		sourceErr  error
		exportErr  error
		wantExport bool
		wantErr    bool
	}{
		{name: "exported", wantExport: true},
		{name: "unknown user dropped", sourceErr: fmt.Errorf("base currency: %w", ports.ErrNotFound)},
		{name: "invalid month dropped", sourceErr: &core.ValidationError{Field: "month", Message: "13 is out of range"}},
		{name: "missing fx rate dropped", sourceErr: fmt.Errorf("liquid assets: %w: GBP on 2024-02-29", fx.ErrRateUnavailable)},
		{name: "unresolved fx pair dropped", sourceErr: fmt.Errorf("convert flows: %w: CHF on 2024-02-10", fx.ErrRateNotResolved)},
		{name: "foreign currency on account dropped", sourceErr: fmt.Errorf("build balance stream: %w", core.ErrCurrencyMismatch)},
		{name: "repository failure requeued", sourceErr: errors.New("database is locked"), wantErr: true},
		{name: "export failure requeued", exportErr: errors.New("quota exceeded"), wantExport: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			source := mocks.NewMockMetricsSource(ctrl)
			exporter := mocks.NewMockMetricsExporter(ctrl)

			source.EXPECT().GetMonthMetrics(gomock.Any(), "demo", 2024, 2).Return(row, tt.sourceErr)
			if tt.wantExport {
				exporter.EXPECT().ExportMonthlyMetrics(gomock.Any(), "demo", row).Return("Metrics!A2:O2", tt.exportErr)
			}

			p := services.NewExportProcessor(source, exporter, services.DefaultExportProcessorConfig(), quietLogger())
			err := p.Handle(context.Background(), amqp.NewExportMessage("demo", 2024, 2))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExportProcessorAcksMonthWithoutRates(t *testing.T) {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := memory.New("EUR")
	store.SetBaseCurrency("demo", "EUR")
	store.AddAccount("demo", core.AccountSnapshot{ID: "gbp", CurrencyCode: "GBP", IsLiquid: true, CreatedAt: created})
	store.AddTransaction("demo", core.TransactionSnapshot{
		ID: "t1", AccountID: "gbp", Money: core.MustMoney("40", "GBP"), OccurredAt: created.AddDate(0, 0, 9), Type: core.Expense,
	})
	source := dashboard.New(dashboard.Repositories{
		Transactions: store, Accounts: store, Adjustments: store, Currency: store, Categories: store,
	}, store, dashboard.WithClock(func() time.Time { return created.AddDate(0, 2, 0) }))

	exporter := sheetsmem.NewExporter()
	cfg := services.DefaultExportProcessorConfig()
	cfg.Metrics = metrics.New()
	p := services.NewExportProcessor(source, exporter, cfg, quietLogger())

	require.NoError(t, p.Handle(context.Background(), amqp.NewExportMessage("demo", 2024, 1)))
	assert.Empty(t, exporter.Rows())

	rec := httptest.NewRecorder()
	cfg.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `saldo_exports_handled_total{outcome="dropped"} 1`)
	assert.NotContains(t, rec.Body.String(), `outcome="retry"`)
}

func TestExportProcessorSkipsDuplicates(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockMetricsSource(ctrl)
	exporter := sheetsmem.NewExporter()

	source.EXPECT().GetMonthMetrics(gomock.Any(), "demo", 2024, 1).Return(dashboard.MonthlyMetricsRow{Year: 2024, Month: 1}, nil).Times(1)

	p := services.NewExportProcessor(source, exporter, services.DefaultExportProcessorConfig(), quietLogger())
	msg := amqp.NewExportMessage("demo", 2024, 1)

	require.NoError(t, p.Handle(context.Background(), msg))
	require.NoError(t, p.Handle(context.Background(), msg))
	assert.Len(t, exporter.Rows(), 1)
	assert.Zero(t, p.Seen().CleanExpired())
}

func TestExportProcessorFailedExportIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockMetricsSource(ctrl)
	exporter := mocks.NewMockMetricsExporter(ctrl)
	row := dashboard.MonthlyMetricsRow{Year: 2024, Month: 3, InProgress: true}

	source.EXPECT().GetMonthMetrics(gomock.Any(), "demo", 2024, 3).Return(row, nil).Times(2)
	gomock.InOrder(
		exporter.EXPECT().ExportMonthlyMetrics(gomock.Any(), "demo", row).Return("", errors.New("timeout")),
		exporter.EXPECT().ExportMonthlyMetrics(gomock.Any(), "demo", row).Return("Metrics!A3:O3", nil),
	)

	p := services.NewExportProcessor(source, exporter, services.DefaultExportProcessorConfig(), quietLogger())
	msg := amqp.NewExportMessage("demo", 2024, 3)

	assert.Error(t, p.Handle(context.Background(), msg))
	assert.NoError(t, p.Handle(context.Background(), msg))
}

func TestExportProcessorAppliesTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockMetricsSource(ctrl)
	exporter := mocks.NewMockMetricsExporter(ctrl)

	source.EXPECT().GetMonthMetrics(gomock.Any(), "demo", 2024, 2).DoAndReturn(
		func(ctx context.Context, userID string, year, month int) (dashboard.MonthlyMetricsRow, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			<-ctx.Done()
			return dashboard.MonthlyMetricsRow{}, ctx.Err()
		})

	cfg := services.DefaultExportProcessorConfig()
	cfg.Timeout = 10 * time.Millisecond
	p := services.NewExportProcessor(source, exporter, cfg, quietLogger())

	err := p.Handle(context.Background(), amqp.NewExportMessage("demo", 2024, 2))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExportProcessorRecordsOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockMetricsSource(ctrl)
	row := dashboard.MonthlyMetricsRow{Year: 2024, Month: 1}

	source.EXPECT().GetMonthMetrics(gomock.Any(), "demo", 2024, 1).Return(row, nil)
	source.EXPECT().GetMonthMetrics(gomock.Any(), "ghost", 2024, 1).Return(row, ports.ErrNotFound)

	cfg := services.DefaultExportProcessorConfig()
	cfg.Metrics = metrics.New()
	p := services.NewExportProcessor(source, sheetsmem.NewExporter(), cfg, quietLogger())

	msg := amqp.NewExportMessage("demo", 2024, 1)
	require.NoError(t, p.Handle(context.Background(), msg))
	require.NoError(t, p.Handle(context.Background(), msg))
	require.NoError(t, p.Handle(context.Background(), amqp.NewExportMessage("ghost", 2024, 1)))

	rec := httptest.NewRecorder()
	cfg.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `saldo_exports_handled_total{outcome="exported"} 1`)
	assert.Contains(t, body, `saldo_exports_handled_total{outcome="duplicate"} 1`)
	assert.Contains(t, body, `saldo_exports_handled_total{outcome="dropped"} 1`)
	assert.Contains(t, body, "saldo_export_duration_seconds_count 1")
}
