package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
	"github.com/susek555/carmarket-gateway/internal/notify"
)

const testCookieName = "carmarket_session"

// stubSessions satisfies sessionService with scripted results and records
// every cookie operation
type stubSessions struct {
	session    models.Session
	hasSession bool

	authSession models.Session
	authErr     error

	refreshResult models.Session

	issued      []models.Session
	clearCalls  int
	logoutCalls int
}

func (s *stubSessions) Authenticate(_ context.Context, _ string, _ string) (models.Session, error) {
	return s.authSession, s.authErr
}

func (s *stubSessions) CurrentSession(_ *http.Request) (models.Session, bool) {
	return s.session, s.hasSession
}

func (s *stubSessions) Refresh(_ context.Context, _ models.Session) models.Session {
	return s.refreshResult
}

func (s *stubSessions) Apply(sess models.Session, update models.SessionUpdate) models.Session {
	return models.Apply(sess, update)
}

func (s *stubSessions) Logout(_ context.Context, w http.ResponseWriter, _ models.Session) {
	s.logoutCalls++
	s.ClearCookie(w)
}

func (s *stubSessions) IssueCookie(w http.ResponseWriter, sess models.Session) error {
	s.issued = append(s.issued, sess)
	http.SetCookie(w, &http.Cookie{Name: testCookieName, Value: "issued", Path: "/"})
	return nil
}

func (s *stubSessions) ClearCookie(w http.ResponseWriter) {
	s.clearCalls++
	http.SetCookie(w, &http.Cookie{Name: testCookieName, Value: "", Path: "/", MaxAge: -1})
}

// stubFetcher replays scripted responses and records what crossed it
type stubFetcher struct {
	response    backend.Response
	nextSession models.Session
	err         error

	requests []backend.Request
	sessions []models.Session
}

func (f *stubFetcher) Do(_ context.Context, s models.Session, req backend.Request) (backend.Response, models.Session, error) {
	f.requests = append(f.requests, req)
	f.sessions = append(f.sessions, s)

	if f.err != nil {
		return backend.Response{}, s, f.err
	}

	next := f.nextSession
	if !next.Authenticated() {
		next = s
	}
	return f.response, next, nil
}

func jsonResponse(code int, body string) backend.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return backend.Response{StatusCode: code, Header: h, Body: []byte(body)}
}

func authenticatedSession() models.Session {
	return models.Session{
		AccessToken:     "access-token",
		RefreshToken:    "refresh-token",
		AccessExpiresAt: time.Now().Add(30 * time.Minute),
		User: models.User{
			ID:        uuid.New(),
			Username:  "marek",
			Email:     "marek@example.com",
			Kind:      models.AccountPerson,
			FirstName: "Marek",
			LastName:  "Nowak",
		},
	}
}

type testEnv struct {
	sessions *stubSessions
	fetcher  *stubFetcher
	hub      *notify.Hub
	server   *httptest.Server
}

func newTestEnv() *testEnv {
	sessions := &stubSessions{}
	fetcher := &stubFetcher{response: jsonResponse(http.StatusOK, `{}`)}
	hub := notify.NewHub(notify.Config{})

	router := NewRouter(RouterConfig{
		Sessions: sessions,
		Fetcher:  fetcher,
		Hub:      hub,
		Logger:   logger.NewNoOpLogger(),
	})

	return &testEnv{
		sessions: sessions,
		fetcher:  fetcher,
		hub:      hub,
		server:   httptest.NewServer(router),
	}
}

func (e *testEnv) close() {
	e.server.Close()
	e.hub.Stop()
}

func issuedCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	return nil
}
