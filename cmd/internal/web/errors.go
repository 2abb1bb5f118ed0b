package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"ticketd/cmd/identity"
	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/ticket"
)

// ErrBadRequest marks a request whose body or parameters could not be used.
var ErrBadRequest = errors.New("bad request")

// Client-facing error codes.
const (
	CodeNoAuth           = "NO_AUTH"
	CodeLoginFail        = "LOGIN_FAIL"
	CodeTicketNotFound   = "TICKET_NOT_FOUND"
	CodeInvalidParams    = "INVALID_PARAMS"
	CodeServiceError     = "SERVICE_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeServiceBusy      = "SERVICE_BUSY"
)

// classify maps err onto a status and a client-facing code and message.
// Messages are fixed strings; error detail stays in the server log.
func classify(err error) (int, string, string) {
	switch {
	case auth.IsAuthFail(err):
		return http.StatusUnauthorized, CodeNoAuth, "authentication required"
	case identity.IsInvalidCredentials(err):
		return http.StatusUnauthorized, CodeLoginFail, "invalid username or password"
	case ticket.IsNotFound(err):
		return http.StatusNotFound, CodeTicketNotFound, "ticket not found"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, CodeInvalidParams, "invalid request parameters"
	default:
		return http.StatusInternalServerError, CodeServiceError, "internal service error"
	}
}

// Fail logs err with the request id and writes the mapped error response.
// It satisfies auth.FailFunc so the gate renders through the same path.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	if errors.Is(err, context.Canceled) {
		level = slog.LevelInfo
	}
	h.log.Log(r.Context(), level, "http.error",
		"request_id", RequestIDFrom(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"err", err,
	)

	writeError(w, r, status, code, msg)
}
