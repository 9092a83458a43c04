package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/dashboard"
)

func ptr(v float64) *float64 { return &v }

func newTestExporter(t *testing.T, handler http.HandlerFunc) *MetricsExporter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	e := NewMetricsExporterWithService(svc, "sheet-id", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestExportMonthlyMetricsAppendsRow(t *testing.T) {
	var (
		gotPath string
		gotBody struct {
			Values [][]any `json:"values"`
		}
		gotQuery string
	)
	e := newTestExporter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id","updates":{"updatedRange":"Metrics!A2:O2","updatedRows":1}}`)
	})

	row := dashboard.MonthlyMetricsRow{
		Year: 2024, Month: 2, Income: 2000, Expense: 1380, Net: 620,
		SavingsRate: ptr(31), LiquidAssets: 2920, Score: ptr(55.5),
	}
	ref, err := e.ExportMonthlyMetrics(context.Background(), "demo", row)
	require.NoError(t, err)

	assert.Equal(t, "Metrics!A2:O2", ref)
	assert.True(t, strings.HasSuffix(gotPath, ":append"), gotPath)
	assert.Contains(t, gotPath, "/spreadsheets/sheet-id/values/Metrics!A:O")
	assert.Contains(t, gotQuery, "valueInputOption=USER_ENTERED")

	require.Len(t, gotBody.Values, 1)
	values := gotBody.Values[0]
	require.Len(t, values, len(Header))
	assert.Equal(t, "demo", values[0])
	assert.Equal(t, "2024-02", values[1])
	assert.Equal(t, 2000.0, values[2])
	assert.Equal(t, 31.0, values[5])
	assert.Equal(t, "", values[6])
	assert.Equal(t, false, values[13])
	assert.Equal(t, "2024-03-15T12:00:00Z", values[14])
}

func TestExportMonthlyMetricsAPIError(t *testing.T) {
	e := newTestExporter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})

	_, err := e.ExportMonthlyMetrics(context.Background(), "demo", dashboard.MonthlyMetricsRow{Year: 2024, Month: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append to Metrics")
}

func TestEnsureHeader(t *testing.T) {
	t.Run("writes header on empty sheet", func(t *testing.T) {
		var methods []string
		e := newTestExporter(t, func(w http.ResponseWriter, r *http.Request) {
			methods = append(methods, r.Method)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"range":"Metrics!A1:O1"}`)
		})
		require.NoError(t, e.EnsureHeader(context.Background()))
		assert.Equal(t, []string{http.MethodGet, http.MethodPut}, methods)
	})

	t.Run("leaves existing header", func(t *testing.T) {
		calls := 0
		e := newTestExporter(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"range":"Metrics!A1:O1","values":[["User"]]}`)
		})
		require.NoError(t, e.EnsureHeader(context.Background()))
		assert.Equal(t, 1, calls)
	})
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 15: "O", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for n, want := range tests {
		assert.Equal(t, want, columnName(n), "column %d", n)
	}
}

func TestNewMetricsExporterCredentials(t *testing.T) {
	t.Run("missing spreadsheet", func(t *testing.T) {
		_, err := NewMetricsExporter(context.Background(), Config{}, nil)
		assert.ErrorContains(t, err, "missing spreadsheet id")
	})

	t.Run("missing client", func(t *testing.T) {
		_, err := NewMetricsExporter(context.Background(), Config{SpreadsheetID: "x"}, nil)
		assert.ErrorContains(t, err, "missing OAuth client credentials")
	})

	t.Run("unreadable token file", func(t *testing.T) {
		cfg := Config{SpreadsheetID: "x", Credentials: Credentials{
			ClientJSON: `{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://a","token_uri":"https://t","redirect_uris":["http://localhost"]}}`,
			TokenFile:  filepath.Join(t.TempDir(), "missing.json"),
		}}
		_, err := NewMetricsExporter(context.Background(), cfg, nil)
		assert.ErrorContains(t, err, "read OAuth token file")
	})

	t.Run("valid files", func(t *testing.T) {
		dir := t.TempDir()
		client := filepath.Join(dir, "client.json")
		token := filepath.Join(dir, "token.json")
		require.NoError(t, os.WriteFile(client, []byte(`{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://a","token_uri":"https://t","redirect_uris":["http://localhost"]}}`), 0600))
		require.NoError(t, os.WriteFile(token, []byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer"}`), 0600))

		e, err := NewMetricsExporter(context.Background(), Config{
			SpreadsheetID: "x",
			Credentials:   Credentials{ClientFile: client, TokenFile: token},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Metrics", e.sheetName)
	})
}
