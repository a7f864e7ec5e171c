package http

import (
	"context"
	"net/http"
	"sync/atomic"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

type userContextKey struct{}

// requireAuth resolves the session cookie and puts the user in the request
// context. The request-scoped logger gains the user id.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.Authenticate(r.Context(), auth.TokenFromRequest(r))
		if err != nil {
			atomic.AddInt64(&s.appMetrics.authFailures, 1)
			s.writeError(w, r, "authenticate", err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
		next(w, r.WithContext(ctx))
	}
}

// userFrom returns the authenticated user. Only valid behind requireAuth.
func userFrom(ctx context.Context) core.User {
	u, _ := ctx.Value(userContextKey{}).(core.User)
	return u
}
