package http

import (
	"errors"
	"fmt"
	"net/http"

	"saldo/internal/amqp"
	"saldo/internal/log"
)

type exportResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func dashboardKey(userID string, year, month int) string {
	return fmt.Sprintf("%s|%04d-%02d", userID, year, month)
}

// handleDashboard serves one month's dashboard. A request with
// "Cache-Control: no-cache" bypasses and refreshes the cached entry.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	params, err := ParseMonthParams(r.URL.Query(), s.now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := dashboardKey(userID, params.Year, params.Month)
	if r.Header.Get("Cache-Control") != "no-cache" {
		if d, ok := s.dashboards.Get(key); ok {
			s.metrics.ObserveDashboardCache(true)
			structured(r).LogDashboardServed(r.Context(), userID, params.Year, params.Month, true)
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, d)
			return
		}
	}

	d, err := s.analytics.GetDashboard(r.Context(), userID, params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.dashboards.Set(key, d)
	s.metrics.ObserveDashboardCache(false)
	structured(r).LogDashboardServed(r.Context(), userID, params.Year, params.Month, false)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := ParseMonthsWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.analytics.GetEvolution(r.Context(), userID, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := ParseMonthsWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	points, err := s.analytics.GetNetWorthTrend(r.Context(), userID, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// handleExport queues an asynchronous export of one month's metrics.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "exports are disabled"})
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	params, err := ParseMonthParams(r.URL.Query(), s.now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := amqp.NewExportMessage(userID, params.Year, params.Month)
	if err := s.exports.PublishExport(r.Context(), msg); err != nil {
		if errors.Is(err, amqp.ErrCircuitOpen) {
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "export queue unavailable"})
			return
		}
		writeError(w, r, fmt.Errorf("publish export: %w", err))
		return
	}

	s.metrics.ExportQueued()
	structured(r).LogExportQueued(r.Context(), userID, params.Year, params.Month, msg.ID.String())
	writeJSON(w, http.StatusAccepted, exportResponse{
		ID:     msg.ID.String(),
		Status: "queued",
		Year:   params.Year,
		Month:  params.Month,
	})
}
