package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/dashboard", http.MethodGet, 200, 20*time.Millisecond)
	m.ObserveHTTP("/api/dashboard", http.MethodGet, 200, 30*time.Millisecond)
	m.ObserveHTTP("", http.MethodGet, 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/dashboard", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))
}

func TestDashboardCacheAndExports(t *testing.T) {
	m := New()
	m.ObserveDashboardCache(true)
	m.ObserveDashboardCache(false)
	m.ObserveDashboardCache(false)
	m.ExportQueued()
	m.ObserveExport(ExportExported, time.Second)
	m.ObserveExport(ExportDuplicate, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dashboardCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dashboardCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsQueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsHandled.WithLabelValues(ExportDuplicate)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.exportDurations))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("/x", "GET", 200, time.Millisecond)
		m.ObserveDashboardCache(true)
		m.ExportQueued()
		m.ObserveExport(ExportRetry, time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ExportQueued()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "saldo_exports_queued_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
