package cors

import (
	"net/http"
	"strings"
)

// Config describes the single browser origin allowed to call the API with
// credentials.
type Config struct {
	AllowedOrigin string
	AllowMethods  []string
	AllowHeaders  []string
	MaxAgeSeconds string
}

func DefaultConfig(origin string) Config {
	return Config{
		AllowedOrigin: strings.TrimRight(origin, "/"),
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type"},
		MaxAgeSeconds: "600",
	}
}

// Middleware echoes the configured origin and answers preflight requests.
// Requests from other origins get no CORS headers and are left to the
// browser to reject.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowMethods, ",")
	headers := strings.Join(cfg.AllowHeaders, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")

			allowed := origin != "" && cfg.AllowedOrigin != "" && origin == cfg.AllowedOrigin
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", cfg.MaxAgeSeconds)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
