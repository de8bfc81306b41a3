package testutil

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// Return random free port on 127.0.0.1 address
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

// FakeBackend is an in-process marketplace backend speaking the real wire
// protocol: snake_case auth endpoints, bearer-guarded resources, rotating
// access tokens. Counters let tests assert exactly how many network calls
// the gateway made.
type FakeBackend struct {
	URL       string
	UserID    uuid.UUID
	Login     string
	Password  string
	Refresh   string
	terminate func()

	mu           sync.Mutex
	accessToken  string
	revoked      bool
	refreshFails bool

	LoginCalls    int
	RefreshCalls  int
	RevokeCalls   int
	ResourceCalls int
}

// StartFakeBackend runs the fake on a loopback httptest server. It is
// stopped automatically when the test ends.
func StartFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		UserID:      uuid.New(),
		Login:       "marek",
		Password:    "correct-horse",
		Refresh:     "refresh-token-1",
		accessToken: "access-token-1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", fb.handleLogin)
	mux.HandleFunc("POST /auth/refresh", fb.handleRefresh)
	mux.HandleFunc("POST /logout", fb.handleRevoke)
	mux.HandleFunc("/", fb.handleResource)

	srv := httptest.NewServer(mux)
	fb.URL = srv.URL
	fb.terminate = srv.Close
	t.Cleanup(srv.Close)

	return fb
}

// Stop shuts the fake down early, for tests that need the backend gone
func (fb *FakeBackend) Stop() {
	fb.terminate()
}

// RotateToken invalidates the current access token, the next guarded call
// answers 401 until the gateway refreshes
func (fb *FakeBackend) RotateToken() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.accessToken = fmt.Sprintf("access-token-%s", uuid.NewString()[:8])
}

// BreakRefresh makes every following refresh call fail with 401
func (fb *FakeBackend) BreakRefresh() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.refreshFails = true
}

// CurrentToken returns the access token the backend accepts right now
func (fb *FakeBackend) CurrentToken() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.accessToken
}

func (fb *FakeBackend) Revoked() bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.revoked
}

func (fb *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.LoginCalls++

	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if req.Login != fb.Login || req.Password != fb.Password {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": map[string][]string{"login": {"Invalid login or password"}},
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  fb.accessToken,
		"refresh_token": fb.Refresh,
		"user": map[string]any{
			"id":           fb.UserID,
			"username":     fb.Login,
			"email":        "marek@example.com",
			"account_type": "P",
			"first_name":   "Marek",
			"last_name":    "Nowak",
		},
	})
}

func (fb *FakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.RefreshCalls++

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if fb.refreshFails || fb.revoked || req.RefreshToken != fb.Refresh {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"access_token": fb.accessToken})
}

func (fb *FakeBackend) handleRevoke(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.RevokeCalls++
	fb.revoked = true
	w.WriteHeader(http.StatusOK)
}

// handleResource is the catch-all guarded resource: it echoes the request so
// tests can see exactly what the gateway forwarded
func (fb *FakeBackend) handleResource(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.ResourceCalls++

	auth := r.Header.Get("Authorization")
	if auth == "" || auth != "Bearer "+fb.accessToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"bearer": strings.TrimPrefix(auth, "Bearer "),
	})
}
