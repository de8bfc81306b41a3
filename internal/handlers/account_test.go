package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleProfileUpdate(t *testing.T) {
	t.Run("accepted update reaches the backend in wire shape and merges into the session", func(t *testing.T) {
		env := newTestEnv()
		defer env.close()

		env.sessions.session = authenticatedSession()
		env.sessions.hasSession = true
		env.fetcher.response = jsonResponse(http.StatusOK, `{}`)

		payload := `{
			"username": "nowak-motors",
			"email": "sales@nowak-motors.pl",
			"kind": "company",
			"companyName": "Nowak Motors",
			"taxId": "PL5260001246"
		}`

		req, err := http.NewRequest(http.MethodPatch, env.server.URL+"/account", strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.Len(t, env.fetcher.requests, 1)
		forwarded := env.fetcher.requests[0]
		assert.Equal(t, http.MethodPatch, forwarded.Method)
		assert.Equal(t, "/users", forwarded.Path)

		var wire map[string]any
		require.NoError(t, json.Unmarshal(forwarded.Body, &wire))
		assert.Equal(t, "C", wire["account_type"])
		assert.Equal(t, "Nowak Motors", wire["company_name"])
		assert.NotContains(t, wire, "first_name")

		require.Len(t, env.sessions.issued, 1)
		merged := env.sessions.issued[0]
		assert.Equal(t, "nowak-motors", merged.User.Username)
		assert.Equal(t, "Nowak Motors", merged.User.CompanyName)
		assert.Empty(t, merged.User.FirstName, "kind switch clears person fields")
		assert.Equal(t, "access-token", merged.AccessToken, "tokens survive the merge")

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "nowak-motors", body["username"])
	})

	t.Run("rejected update copies the backend response and leaves the session alone", func(t *testing.T) {
		env := newTestEnv()
		defer env.close()

		env.sessions.session = authenticatedSession()
		env.sessions.hasSession = true
		env.fetcher.response = jsonResponse(http.StatusConflict, `{"errors":{"username":["Already taken"]}}`)

		payload := `{
			"username": "taken",
			"email": "marek@example.com",
			"kind": "person",
			"firstName": "Marek",
			"lastName": "Nowak"
		}`

		req, err := http.NewRequest(http.MethodPatch, env.server.URL+"/account", strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Empty(t, env.sessions.issued, "no merge, no cookie")
	})

	t.Run("company kind without company fields fails validation", func(t *testing.T) {
		env := newTestEnv()
		defer env.close()

		env.sessions.session = authenticatedSession()
		env.sessions.hasSession = true

		payload := `{"username":"nowak","email":"a@b.pl","kind":"company"}`

		req, err := http.NewRequest(http.MethodPatch, env.server.URL+"/account", strings.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body struct {
			Error  string              `json:"error"`
			Fields map[string][]string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "validation_failed", body.Error)
		assert.Contains(t, body.Fields, "companyName")
		assert.Empty(t, env.fetcher.requests, "invalid payload never leaves the gateway")
	})

	t.Run("anonymous request is rejected", func(t *testing.T) {
		env := newTestEnv()
		defer env.close()

		req, err := http.NewRequest(http.MethodPatch, env.server.URL+"/account", strings.NewReader(`{}`))
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHandlePasswordChange(t *testing.T) {
	t.Run("accepted change forwards a password-only payload", func(t *testing.T) {
		env := newTestEnv()
		defer env.close()

		env.sessions.session = authenticatedSession()
		env.sessions.hasSession = true

		req, err := http.NewRequest(http.MethodPut, env.server.URL+"/account/password",
			strings.NewReader(`{"password":"brand-new-secret"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.Len(t, env.fetcher.requests, 1)
		forwarded := env.fetcher.requests[0]
		assert.Equal(t, "/users/password", forwarded.Path)
		assert.JSONEq(t, `{"password":"brand-new-secret"}`, string(forwarded.Body))

		assert.Empty(t, env.sessions.issued, "credential change leaves the session cookie alone")
	})

	t.Run("short password never leaves the gateway", func(t *testing.T) {
		env := newTestEnv()
		defer env.close()

		env.sessions.session = authenticatedSession()
		env.sessions.hasSession = true

		req, err := http.NewRequest(http.MethodPut, env.server.URL+"/account/password",
			strings.NewReader(`{"password":"short"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Empty(t, env.fetcher.requests)
	})
}
