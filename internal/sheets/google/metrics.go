// Package google appends monthly metrics rows to a Google Sheets spreadsheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/dashboard"
)

// Header is the column layout written by ExportMonthlyMetrics.
var Header = []any{
	"User", "Month", "Income", "Expense", "Net", "Savings rate", "Stability index",
	"Stability score", "Peak share %", "Discretionary %", "Liquid assets",
	"Liquid months", "Score", "In progress", "Exported at",
}

// Credentials holds the OAuth client and token. Inline JSON wins over files.
type Credentials struct {
	ClientFile string
	ClientJSON string
	TokenFile  string
	TokenJSON  string
}

type Config struct {
	SpreadsheetID string
	SheetName     string
	Credentials   Credentials
}

type MetricsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time
	logger        *slog.Logger
}

// NewMetricsExporter authorizes with the stored OAuth token and builds the
// Sheets service on a pooled HTTP transport.
func NewMetricsExporter(ctx context.Context, cfg Config, logger *slog.Logger) (*MetricsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewMetricsExporterWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewMetricsExporterWithService wraps an existing Sheets service.
func NewMetricsExporterWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *slog.Logger) *MetricsExporter {
	if sheetName == "" {
		sheetName = "Metrics"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
		logger:        logger,
	}
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	clientJSON, err := readCredential(creds.ClientJSON, creds.ClientFile, "OAuth client")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := readCredential(creds.TokenJSON, creds.TokenFile, "OAuth token")
	if err != nil {
		return nil, err
	}

	oauthCfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}

	// The token source refreshes through the pooled client as well
	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauthCfg.Client(base, &tok)

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func readCredential(inline, path, what string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if path == "" {
		return nil, fmt.Errorf("missing %s credentials", what)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", what, err)
	}
	return b, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling, timeouts and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ExportMonthlyMetrics appends one row and returns the updated range.
func (e *MetricsExporter) ExportMonthlyMetrics(ctx context.Context, userID string, row dashboard.MonthlyMetricsRow) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:%s", e.sheetName, columnName(len(Header)))
	vr := &gsheet.ValueRange{Values: [][]any{metricsValues(userID, row, e.now())}}

	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", e.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	e.logger.DebugContext(ctx, "Appended metrics row", "range", ref, "user_id", userID)
	return ref, nil
}

// EnsureHeader writes the header row when the first row of the sheet is empty.
func (e *MetricsExporter) EnsureHeader(ctx context.Context) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	first := fmt.Sprintf("%s!A1:%s1", e.sheetName, columnName(len(Header)))
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, first).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", first, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, first, &gsheet.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func metricsValues(userID string, row dashboard.MonthlyMetricsRow, exportedAt time.Time) []any {
	return []any{
		userID,
		fmt.Sprintf("%04d-%02d", row.Year, row.Month),
		row.Income,
		row.Expense,
		row.Net,
		optional(row.SavingsRate),
		optional(row.StabilityIndex),
		optional(row.StabilityScore),
		optional(row.PeakSharePercent),
		optional(row.DiscretionaryPercent),
		row.LiquidAssets,
		optional(row.LiquidMonths),
		optional(row.Score),
		row.InProgress,
		exportedAt.UTC().Format(time.RFC3339),
	}
}

// optional renders a missing metric as an empty cell.
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// columnName converts a 1-based column index to its A1 letter form.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
