package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// envelope is the body of every non-list response that carries a message.
type envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	User    *core.User `json:"user,omitempty"`
}

type listEnvelope struct {
	Success           bool                   `json:"success"`
	Transactions      []core.TransactionView `json:"transactions"`
	TotalTransactions int                    `json:"totalTransactions"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: status < 400, Message: msg})
}

// statusFor maps an error kind to its HTTP status. Zero means unknown.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return 0
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return log.ErrorTypeValidation
	case http.StatusUnauthorized:
		return log.ErrorTypeAuth
	case http.StatusForbidden:
		return log.ErrorTypeForbidden
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeInternal
	}
}

// writeError renders err with its mapped status. Unknown errors become a
// generic 500 and are logged with the request-scoped logger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	if status == 0 {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, operation, log.NewFields().WithErrorType(log.ErrorTypeInternal))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
		log.FieldOperation, operation,
		log.FieldErrorType, errorType(status),
		log.FieldError, err.Error())
	writeMessage(w, status, core.Message(err, http.StatusText(status)))
}
