// Package memory keeps exported metrics rows in process, for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"saldo/internal/dashboard"
)

type ExportedRow struct {
	UserID     string
	Row        dashboard.MonthlyMetricsRow
	ExportedAt time.Time
}

type Exporter struct {
	mu   sync.Mutex
	rows []ExportedRow
}

func NewExporter() *Exporter {
	return &Exporter{}
}

// ExportMonthlyMetrics stores the row and returns a synthetic reference.
func (e *Exporter) ExportMonthlyMetrics(ctx context.Context, userID string, row dashboard.MonthlyMetricsRow) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, ExportedRow{UserID: userID, Row: row, ExportedAt: time.Now().UTC()})
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of everything exported so far, oldest first.
func (e *Exporter) Rows() []ExportedRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ExportedRow(nil), e.rows...)
}
