package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/models"
)

// readerFunc allows to use a function as session reader
type readerFunc func(r *http.Request) (models.Session, bool)

func (f readerFunc) CurrentSession(r *http.Request) (models.Session, bool) {
	return f(r)
}

func TestSessionMiddleware(t *testing.T) {
	// Handler that writes the username from context, or "anonymous"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionctx.FromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(s.User.Username))
	})

	t.Run("session lands in context", func(t *testing.T) {
		mw := SessionMiddleware(readerFunc(func(r *http.Request) (models.Session, bool) {
			return models.Session{AccessToken: "a", User: models.User{Username: "alice"}}, true
		}))

		srv := httptest.NewServer(mw(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, "alice", string(body))
	})

	t.Run("anonymous passes through", func(t *testing.T) {
		mw := SessionMiddleware(readerFunc(func(r *http.Request) (models.Session, bool) {
			return models.Session{}, false
		}))

		srv := httptest.NewServer(mw(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "anonymous", string(body))
	})
}

func TestRequireSession(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(sessionctx.New(r.Context(), models.Session{AccessToken: "a"}))
		w := httptest.NewRecorder()

		RequireSession(next).ServeHTTP(w, r)

		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		RequireSession(next).ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.JSONEq(t, `{
			"error": "service_error",
			"message": "Unauthorized"
		}`, w.Body.String())
	})
}
