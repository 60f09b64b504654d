package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged with the technical detail and the request id, then
// answered with the user-facing message from core.MapError in the form
// the client expects: an HTMX alert partial, JSON, or plain text.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/table"
	"github.com/JonMunkholm/datatable/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTableNotFound), errors.Is(err, core.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, table.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, table.ErrNotEditing), errors.Is(err, table.ErrStaleSave):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyQueries):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and answers with its user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", userMsg.Code,
		"error", err,
	)

	switch {
	case isHTMX(r):
		s.renderErrorPartial(w, r, userMsg, status)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, status)
	default:
		respondErrorHTML(w, userMsg, status)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML writes a plain error response.
func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, status int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", status)
}

// renderErrorPartial renders the alert into the page's error slot
// instead of replacing the table.
func (s *Server) renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("HX-Retarget", "#"+templates.ErrorSlotID)
	w.Header().Set("HX-Reswap", "innerHTML")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		s.logger.Error("render error partial", "error", err)
	}
}

// isHTMX reports whether htmx issued the request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON is true for the API and for clients that ask for JSON.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
