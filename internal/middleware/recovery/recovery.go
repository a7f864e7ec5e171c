package recovery

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"fintrack/internal/log"
)

// Recoverer turns a panic in next into a 500 JSON response and logs the
// stack with the request-scoped logger.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Panic while serving request",
				log.FieldError, rec,
				log.FieldErrorType, log.ErrorTypeInternal,
				log.FieldPath, r.URL.Path,
				"stack", string(debug.Stack()))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}
