package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saldo/internal/core"
)

const (
	// UserIDHeader carries the caller's user id. Authentication happens upstream.
	UserIDHeader = "X-User-ID"

	defaultMonthsWindow = 12
	maxUserIDLength     = 128
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// parseUserID reads and sanitizes the user id header.
func parseUserID(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(UserIDHeader))
	if id == "" {
		return "", &core.ValidationError{Field: UserIDHeader, Message: "header is required"}
	}
	if len(id) > maxUserIDLength {
		return "", &core.ValidationError{Field: UserIDHeader, Message: "too long"}
	}
	return id, nil
}

// ParseMonthParams extracts year and month from the query, defaulting each to
// the current one. Malformed numbers are rejected rather than defaulted.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	var err error
	if params.Year, err = intParam(query, "year", params.Year); err != nil {
		return MonthParams{}, err
	}
	if params.Month, err = intParam(query, "month", params.Month); err != nil {
		return MonthParams{}, err
	}
	if err := core.ValidateYearMonth(params.Year, params.Month); err != nil {
		return MonthParams{}, err
	}
	return params, nil
}

// ParseMonthsWindow extracts the months query parameter (default 12).
func ParseMonthsWindow(query url.Values) (int, error) {
	n, err := intParam(query, "months", defaultMonthsWindow)
	if err != nil {
		return 0, err
	}
	if err := core.ValidateMonthsWindow(n); err != nil {
		return 0, err
	}
	return n, nil
}

func intParam(query url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ValidationError{Field: name, Message: "must be an integer", Err: err}
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
