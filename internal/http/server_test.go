package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/dashboard"
	"saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/ports"
)

type fakeAnalytics struct {
	mu             sync.Mutex
	dashboardCalls int
	lastUser       string
	lastMonths     int
	err            error
}

func (f *fakeAnalytics) GetDashboard(_ context.Context, userID string, year, month int) (*dashboard.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboardCalls++
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return &dashboard.Dashboard{Year: year, Month: month, BaseCurrency: "EUR"}, nil
}

func (f *fakeAnalytics) GetEvolution(_ context.Context, userID string, months int) ([]dashboard.MonthlyMetricsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser, f.lastMonths = userID, months
	if f.err != nil {
		return nil, f.err
	}
	rows := make([]dashboard.MonthlyMetricsRow, months)
	for i := range rows {
		rows[i] = dashboard.MonthlyMetricsRow{Year: 2024, Month: i%12 + 1}
	}
	return rows, nil
}

func (f *fakeAnalytics) GetNetWorthTrend(_ context.Context, userID string, months int) ([]dashboard.NetWorthPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser, f.lastMonths = userID, months
	if f.err != nil {
		return nil, f.err
	}
	return []dashboard.NetWorthPoint{{Year: 2024, Month: 3, NetWorth: 1234.5}}, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ExportMessage
	err  error
}

func (p *fakePublisher) PublishExport(_ context.Context, msg *amqp.ExportMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, analytics AnalyticsService, exports amqp.Publisher) *Server {
	t.Helper()
	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Output: io.Discard})
	srv := NewServer(":0", Deps{
		Analytics: analytics,
		Exports:   exports,
		Logger:    logger,
		CacheTTL:  time.Minute,
		CacheSize: 16,
		RateLimit: 3,
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeAnalytics{}, nil)

	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.ready = func(context.Context) error { return errors.New("db down") }
	rec = do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, &fakeAnalytics{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHandleDashboard(t *testing.T) {
	analytics := &fakeAnalytics{}
	srv := newTestServer(t, analytics, nil)

	rec := do(srv, http.MethodGet, "/api/dashboard?year=2024&month=2", "user-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 2024, d.Year)
	assert.Equal(t, 2, d.Month)
	assert.Equal(t, "user-1", analytics.lastUser)

	rec = do(srv, http.MethodGet, "/api/dashboard?year=2024&month=2", "user-1")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, analytics.dashboardCalls)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?year=2024&month=2", nil)
	req.Header.Set(UserIDHeader, "user-1")
	req.Header.Set("Cache-Control", "no-cache")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, analytics.dashboardCalls)

	// Another user never sees the first user's cached entry.
	do(srv, http.MethodGet, "/api/dashboard?year=2024&month=2", "user-2")
	assert.Equal(t, 3, analytics.dashboardCalls)
}

func TestHandleDashboardDefaultsToCurrentMonth(t *testing.T) {
	srv := newTestServer(t, &fakeAnalytics{}, nil)

	rec := do(srv, http.MethodGet, "/api/dashboard", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 2024, d.Year)
	assert.Equal(t, 3, d.Month)
}

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		user       string
		serviceErr error
		wantStatus int
		wantField  string
	}{
		{name: "missing user", target: "/api/dashboard", wantStatus: http.StatusBadRequest, wantField: UserIDHeader},
		{name: "bad month", target: "/api/dashboard?month=13", user: "u", wantStatus: http.StatusBadRequest, wantField: "month"},
		{name: "non numeric year", target: "/api/dashboard?year=abc", user: "u", wantStatus: http.StatusBadRequest, wantField: "year"},
		{name: "window too large", target: "/api/evolution?months=121", user: "u", wantStatus: http.StatusBadRequest, wantField: "months"},
		{name: "window zero", target: "/api/networth?months=0", user: "u", wantStatus: http.StatusBadRequest, wantField: "months"},
		{name: "unknown user", target: "/api/evolution", user: "u", serviceErr: fmt.Errorf("load: %w", ports.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "timeout", target: "/api/networth", user: "u", serviceErr: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout},
		{name: "internal", target: "/api/dashboard", user: "u", serviceErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
		{name: "engine validation", target: "/api/dashboard", user: "u", serviceErr: &core.ValidationError{Field: "year", Message: "bad"}, wantStatus: http.StatusBadRequest, wantField: "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAnalytics{err: tt.serviceErr}, nil)
			rec := do(srv, http.MethodGet, tt.target, tt.user)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotContains(t, body.Error, "boom")
		})
	}
}

func TestHandleEvolutionAndNetWorth(t *testing.T) {
	analytics := &fakeAnalytics{}
	srv := newTestServer(t, analytics, nil)

	rec := do(srv, http.MethodGet, "/api/evolution", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []dashboard.MonthlyMetricsRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, defaultMonthsWindow)

	rec = do(srv, http.MethodGet, "/api/networth?months=6", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, analytics.lastMonths)
	var points []dashboard.NetWorthPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.InDelta(t, 1234.5, points[0].NetWorth, 1e-9)
}

func TestHandleExport(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(t, &fakeAnalytics{}, pub)

	rec := do(srv, http.MethodPost, "/api/exports?year=2024&month=1", "user-1")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp exportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Status)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, pub.msgs[0].ID.String(), resp.ID)
	assert.Equal(t, "user-1", pub.msgs[0].UserID)
	assert.Equal(t, 2024, pub.msgs[0].Year)
	assert.Equal(t, 1, pub.msgs[0].Month)
}

func TestHandleExportFailures(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, &fakeAnalytics{}, nil)
		rec := do(srv, http.MethodPost, "/api/exports", "user-1")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("circuit open", func(t *testing.T) {
		srv := newTestServer(t, &fakeAnalytics{}, &fakePublisher{err: amqp.ErrCircuitOpen})
		rec := do(srv, http.MethodPost, "/api/exports", "user-1")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})

	t.Run("broker error", func(t *testing.T) {
		srv := newTestServer(t, &fakeAnalytics{}, &fakePublisher{err: errors.New("connection reset")})
		rec := do(srv, http.MethodPost, "/api/exports", "user-1")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		srv := newTestServer(t, &fakeAnalytics{}, &fakePublisher{})
		rec := do(srv, http.MethodGet, "/api/exports", "user-1")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestExportRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeAnalytics{}, &fakePublisher{})

	for i := range 3 {
		rec := do(srv, http.MethodPost, "/api/exports", "user-1")
		require.Equal(t, http.StatusAccepted, rec.Code, "request %d", i)
	}
	rec := do(srv, http.MethodPost, "/api/exports", "user-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads are not rate limited.
	rec = do(srv, http.MethodGet, "/api/dashboard", "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &fakeAnalytics{}, nil)
	rec := do(srv, http.MethodGet, "/api/nope", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv := NewServer(":0", Deps{
		Analytics: &fakeAnalytics{},
		Exports:   &fakePublisher{},
		Logger:    log.New(log.Config{Output: io.Discard}),
		CacheTTL:  time.Minute,
		CacheSize: 4,
		Metrics:   m,
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	do(srv, http.MethodGet, "/api/dashboard", "user-1")
	do(srv, http.MethodGet, "/api/dashboard", "user-1")
	do(srv, http.MethodPost, "/api/exports", "user-1")

	rec := do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `saldo_http_requests_total{method="GET",route="/api/dashboard",status="200"} 2`)
	assert.Contains(t, body, `saldo_dashboard_cache_total{result="hit"} 1`)
	assert.Contains(t, body, "saldo_exports_queued_total 1")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	srv := newTestServer(t, &fakeAnalytics{}, nil)
	rec := do(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	srv := NewServer(":0", Deps{
		Analytics:      &fakeAnalytics{},
		Logger:         log.New(log.Config{Output: io.Discard}),
		AllowedOrigins: []string{"https://app.example.com"},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", UserIDHeader)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type mapCache struct {
	items map[string]*dashboard.Dashboard
}

func (c *mapCache) Get(key string) (*dashboard.Dashboard, bool) {
	d, ok := c.items[key]
	return d, ok
}
func (c *mapCache) Set(key string, d *dashboard.Dashboard) { c.items[key] = d }
func (c *mapCache) Delete(key string)                      { delete(c.items, key) }
func (c *mapCache) DeletePrefix(string) int                { return 0 }
func (c *mapCache) Size() int                              { return len(c.items) }

func TestInjectedDashboardCache(t *testing.T) {
	shared := &mapCache{items: map[string]*dashboard.Dashboard{
		"user-1|2024-02": {Year: 2024, Month: 2, BaseCurrency: "CHF"},
	}}
	analytics := &fakeAnalytics{}
	srv := NewServer(":0", Deps{
		Analytics:      analytics,
		Logger:         log.New(log.Config{Output: io.Discard}),
		DashboardCache: shared,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := do(srv, http.MethodGet, "/api/dashboard?year=2024&month=2", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), `"baseCurrency":"CHF"`)
	assert.Zero(t, analytics.dashboardCalls)

	do(srv, http.MethodGet, "/api/dashboard?year=2024&month=3", "user-1")
	assert.Equal(t, 2, shared.Size())
}
