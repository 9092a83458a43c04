package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/ports"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure here is a broken connection
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to status codes. Internal details are logged,
// never returned to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, ports.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(r.Context()).WarnContext(r.Context(), "Request timed out", log.FieldError, err)
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
