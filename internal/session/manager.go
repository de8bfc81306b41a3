package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
)

const (
	defaultAccessTokenTTL = 30 * time.Minute
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultCookieName     = "carmarket_session"
)

// Backend is the slice of the backend client the manager needs
type Backend interface {
	// Login with user credentials
	// Has to return apperrors.FieldErrors on rejected credentials
	Login(ctx context.Context, login string, password string) (models.Session, error)

	// Refresh exchanges the refresh token for a new access token
	Refresh(ctx context.Context, refreshToken string) (string, error)

	// Revoke invalidates the refresh token
	Revoke(ctx context.Context, refreshToken string) error
}

// Metrics hooks for the refresh lifecycle
type Metrics interface {
	RefreshSkipped()
	RefreshSucceeded()
	RefreshFailed()
}

type noopMetrics struct{}

func (noopMetrics) RefreshSkipped()   {}
func (noopMetrics) RefreshSucceeded() {}
func (noopMetrics) RefreshFailed()    {}

// Manager with sensible defaults
type Config struct {
	// Secret key the session cookie signing key is derived from
	// Required to be set
	SecretKey string

	// Lifetime stamped on access tokens at issue or refresh time
	// If not set then default is used
	AccessTokenTTL time.Duration

	// Lifetime of the signed cookie container
	// If not set then default is used
	SessionTTL time.Duration

	// Cookie attributes
	CookieName   string
	CookieSecure bool

	Metrics Metrics
	Logger  logger.Logger
}

// Manager owns the bearer credential lifecycle and the identity shown in the
// UI. All state lives in the signed cookie; the manager itself is stateless
// and safe for concurrent use.
type Manager struct {
	codec   tokenCodec
	backend Backend

	accessTTL  time.Duration
	sessionTTL time.Duration

	cookieName   string
	cookieSecure bool

	metrics Metrics
	logger  logger.Logger
}

func NewManager(cfg Config, backend Backend) (*Manager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if backend == nil {
		return nil, errors.New("backend must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTokenTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.SessionTTL, defaultSessionTTL)

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	codec, err := newTokenCodec(cfg.SecretKey, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	return &Manager{
		codec:        codec,
		backend:      backend,
		accessTTL:    cfg.AccessTokenTTL,
		sessionTTL:   cfg.SessionTTL,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}, nil
}

// Authenticate logs the user in and stamps the access token expiry. This and
// ForceRefresh are the only two places AccessExpiresAt is ever computed.
func (m *Manager) Authenticate(ctx context.Context, login string, password string) (models.Session, error) {
	s, err := m.backend.Login(ctx, login, password)
	if err != nil {
		return models.Session{}, err
	}

	s.AccessExpiresAt = time.Now().Add(m.accessTTL)
	return s, nil
}

// CurrentSession returns the request's session snapshot. Cookie decode and
// signature check only, never a network call.
func (m *Manager) CurrentSession(r *http.Request) (models.Session, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return models.Session{}, false
	}

	s, err := m.codec.Decode(cookie.Value)
	if err != nil {
		m.logger.Debug("Dropping undecodable session cookie", "error", err)
		return models.Session{}, false
	}

	return s, true
}

// Refresh returns the session with a usable access token. While the token is
// still fresh this is the hot path: no network, input returned unchanged.
func (m *Manager) Refresh(ctx context.Context, s models.Session) models.Session {
	if !s.Authenticated() {
		return s
	}

	if !s.Expired(time.Now()) {
		m.metrics.RefreshSkipped()
		return s
	}

	return m.ForceRefresh(ctx, s)
}

// ForceRefresh exchanges the refresh token unconditionally. On failure the
// session is tagged with models.RefreshTokenError and the original tokens
// are left untouched; the caller decides whether to force re-login.
func (m *Manager) ForceRefresh(ctx context.Context, s models.Session) models.Session {
	if !s.Authenticated() {
		return s
	}

	access, err := m.backend.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.metrics.RefreshFailed()
		m.logger.Warn("Access token refresh failed", "user", s.User.Username, "error", err)

		s.Error = models.RefreshTokenError
		return s
	}

	m.metrics.RefreshSucceeded()
	s.AccessToken = access
	s.AccessExpiresAt = time.Now().Add(m.accessTTL)
	s.Error = ""
	return s
}

// Apply merges a recognized account update into the session snapshot
func (m *Manager) Apply(s models.Session, update models.SessionUpdate) models.Session {
	return models.Apply(s, update)
}

// Logout revokes the refresh token best effort and always clears the local
// session. A dead backend must not keep the user logged in.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, s models.Session) {
	if s.RefreshToken != "" {
		if err := m.backend.Revoke(ctx, s.RefreshToken); err != nil {
			m.logger.Warn("Token revoke failed, clearing session anyway", "user", s.User.Username, "error", err)
		}
	}

	m.ClearCookie(w)
}

// IssueCookie writes the signed session cookie to the response
func (m *Manager) IssueCookie(w http.ResponseWriter, s models.Session) error {
	token, err := m.codec.Encode(s)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// ClearCookie expires the session cookie
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieName returns the configured session cookie name
func (m *Manager) CookieName() string {
	return m.cookieName
}
