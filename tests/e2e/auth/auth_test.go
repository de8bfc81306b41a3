package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/susek555/carmarket-gateway/tests/e2e"
)

const (
	LoginURL   = "/auth/login"
	LogoutURL  = "/auth/logout"
	RefreshURL = "/auth/refresh"
	MeURL      = "/auth/me"
)

func login(t *testing.T, browser *http.Client, gw *e2e.Gateway) {
	t.Helper()

	data := `{"login": "marek", "password": "correct-horse"}`
	resp, err := browser.Post(gw.URL+LoginURL, "application/json", strings.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func Test_AuthLogin(t *testing.T) {
	t.Parallel()

	t.Run("login ok sets session cookie and returns the user", func(t *testing.T) {
		gw := e2e.Serve(t, 30*time.Minute)
		browser := e2e.NewBrowser(t)

		data := `{"login": "marek", "password": "correct-horse"}`
		resp, err := browser.Post(gw.URL+LoginURL, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

		var user map[string]any
		require.NoError(t, json.Unmarshal(body, &user))
		require.Equal(t, "marek", user["username"])
		require.Equal(t, "person", user["kind"])

		require.Equal(t, 1, len(resp.Cookies()))
		cookie := resp.Cookies()[0]
		require.Equal(t, gw.Sessions.CookieName(), cookie.Name)
		require.True(t, cookie.HttpOnly, "session cookie should be HttpOnly")
		require.Equal(t, "/", cookie.Path, "session cookie should be available on / path")
		require.NotEmpty(t, cookie.Value, "session cookie should not be empty")
		require.Equal(t, 1, gw.Backend.LoginCalls)
	})

	t.Run("wrong password reports the backend's field errors", func(t *testing.T) {
		gw := e2e.Serve(t, 30*time.Minute)
		browser := e2e.NewBrowser(t)

		data := `{"login": "marek", "password": "wrong"}`
		resp, err := browser.Post(gw.URL+LoginURL, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, string(body), "Invalid login or password")
		require.Empty(t, resp.Cookies(), "failed login should not set a cookie")
	})
}

func Test_AuthRefresh(t *testing.T) {
	t.Parallel()

	t.Run("fresh session refresh is a local no-op", func(t *testing.T) {
		gw := e2e.Serve(t, 30*time.Minute)
		browser := e2e.NewBrowser(t)
		login(t, browser, gw)

		resp, err := browser.Post(gw.URL+RefreshURL, "application/json", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 0, gw.Backend.RefreshCalls, "fresh token should not hit the backend")
	})

	t.Run("expired session refresh rolls the token once", func(t *testing.T) {
		gw := e2e.Serve(t, 50*time.Millisecond)
		browser := e2e.NewBrowser(t)
		login(t, browser, gw)

		time.Sleep(80 * time.Millisecond)

		resp, err := browser.Post(gw.URL+RefreshURL, "application/json", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 1, gw.Backend.RefreshCalls)
	})

	t.Run("refused refresh clears the cookie", func(t *testing.T) {
		gw := e2e.Serve(t, 50*time.Millisecond)
		browser := e2e.NewBrowser(t)
		login(t, browser, gw)

		gw.Backend.BreakRefresh()
		time.Sleep(80 * time.Millisecond)

		resp, err := browser.Post(gw.URL+RefreshURL, "application/json", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		srvURL, err := url.Parse(gw.URL)
		require.NoError(t, err)
		require.Empty(t, browser.Jar.Cookies(srvURL), "cleared cookie should leave the jar")
	})
}

func Test_AuthLogout(t *testing.T) {
	t.Parallel()

	t.Run("logout revokes the refresh token and clears the cookie", func(t *testing.T) {
		gw := e2e.Serve(t, 30*time.Minute)
		browser := e2e.NewBrowser(t)
		login(t, browser, gw)

		resp, err := browser.Post(gw.URL+LogoutURL, "application/json", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 1, gw.Backend.RevokeCalls)
		require.True(t, gw.Backend.Revoked())

		meResp, err := browser.Get(gw.URL + MeURL)
		require.NoError(t, err)
		defer func() { _ = meResp.Body.Close() }()
		require.Equal(t, http.StatusUnauthorized, meResp.StatusCode, "session should be gone after logout")
	})

	t.Run("logout still succeeds when the backend is already down", func(t *testing.T) {
		gw := e2e.Serve(t, 30*time.Minute)
		browser := e2e.NewBrowser(t)
		login(t, browser, gw)

		gw.Backend.Stop()

		resp, err := browser.Post(gw.URL+LogoutURL, "application/json", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode, "logout is local first, revoke is best effort")
	})
}
