package middleware

import (
	"net/http"

	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/models"
)

type sessionReader interface {
	CurrentSession(r *http.Request) (models.Session, bool)
}

// SessionMiddleware decodes the session cookie into the request context.
// Anonymous requests pass through untouched, endpoints that need identity
// add RequireSession on top.
func SessionMiddleware(sessions sessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := sessions.CurrentSession(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := sessionctx.New(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests without an authenticated session
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok || !s.Authenticated() {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
