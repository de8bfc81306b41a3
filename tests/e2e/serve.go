package e2e

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/fetch"
	"github.com/susek555/carmarket-gateway/internal/handlers"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/notify"
	"github.com/susek555/carmarket-gateway/internal/session"
	"github.com/susek555/carmarket-gateway/internal/testutil"
)

// Gateway is a fully wired gateway running against an in-process fake
// backend, the same object graph main builds minus the listener
type Gateway struct {
	URL      string
	Backend  *testutil.FakeBackend
	Sessions *session.Manager
	Hub      *notify.Hub
}

// Serve starts the gateway for one test. accessTTL controls how long issued
// access tokens stay fresh, short values let tests cross the expiry border
// without a fake clock.
func Serve(t *testing.T, accessTTL time.Duration) *Gateway {
	t.Helper()

	fb := testutil.StartFakeBackend(t)

	backendClient, err := backend.NewClient(backend.Config{BaseURL: fb.URL})
	require.NoError(t, err, "backend client should be created without errors")

	sessions, err := session.NewManager(session.Config{
		SecretKey:      "test-secret",
		AccessTokenTTL: accessTTL,
	}, backendClient)
	require.NoError(t, err, "session manager should be created without errors")

	fetcher, err := fetch.NewClient(fetch.Config{}, backendClient, sessions)
	require.NoError(t, err, "fetch client should be created without errors")

	hub := notify.NewHub(notify.Config{})
	t.Cleanup(hub.Stop)

	router := handlers.NewRouter(handlers.RouterConfig{
		Sessions: sessions,
		Fetcher:  fetcher,
		Hub:      hub,
		Logger:   logger.NewNoOpLogger(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &Gateway{
		URL:      srv.URL,
		Backend:  fb,
		Sessions: sessions,
		Hub:      hub,
	}
}

// NewBrowser returns an http client with a cookie jar, one logical browser
func NewBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err, "cookie jar should be created without errors")

	return &http.Client{Jar: jar}
}
