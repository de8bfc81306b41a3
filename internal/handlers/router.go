package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/handlers/middleware"
	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
	"github.com/susek555/carmarket-gateway/internal/notify"
)

// sessionService is the session manager surface the handlers consume
type sessionService interface {
	Authenticate(ctx context.Context, login string, password string) (models.Session, error)
	CurrentSession(r *http.Request) (models.Session, bool)
	Refresh(ctx context.Context, s models.Session) models.Session
	Apply(s models.Session, update models.SessionUpdate) models.Session
	Logout(ctx context.Context, w http.ResponseWriter, s models.Session)
	IssueCookie(w http.ResponseWriter, s models.Session) error
	ClearCookie(w http.ResponseWriter)
}

// fetchClient is the authenticated dispatch surface of the fetch pipeline
type fetchClient interface {
	Do(ctx context.Context, s models.Session, req backend.Request) (backend.Response, models.Session, error)
}

// cookieWriter is the slice of sessionService the proxy needs
type cookieWriter interface {
	IssueCookie(w http.ResponseWriter, s models.Session) error
}

// Backend resources the gateway forwards without touching the payload.
// POST /bid and POST /sale-offer are carved out below for gateway-side
// validation; everything else on these prefixes passes straight through.
var proxiedPrefixes = []string{"/sale-offer", "/review", "/users", "/car", "/bid", "/auction", "/image"}

type RouterConfig struct {
	Sessions sessionService
	Fetcher  fetchClient
	Hub      *notify.Hub

	// Optional extras, nil disables them
	LoginLimiter   *middleware.RateLimiter
	Metrics        middleware.RequestRecorder
	MetricsHandler http.Handler

	Logger logger.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	r := chi.NewRouter()

	r.Use(middleware.LoggerMiddleware(l))
	if cfg.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.SessionMiddleware(cfg.Sessions))

	r.Get("/healthz", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		login := handleLogin(cfg.Sessions, l)
		if cfg.LoginLimiter != nil {
			r.With(cfg.LoginLimiter.Middleware()).Method(http.MethodPost, "/login", login)
		} else {
			r.Method(http.MethodPost, "/login", login)
		}

		r.Method(http.MethodPost, "/logout", handleLogout(cfg.Sessions, l))
		r.With(middleware.RequireSession).Method(http.MethodPost, "/refresh", handleRefresh(cfg.Sessions, l))
		r.With(middleware.RequireSession).Method(http.MethodGet, "/me", handleMe())
	})

	p := newProxy(cfg.Fetcher, cfg.Sessions, l)

	r.Route("/account", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Method(http.MethodPatch, "/", handleProfileUpdate(p, cfg.Sessions, l))
		r.Method(http.MethodPut, "/password", handlePasswordChange(p, cfg.Sessions, l))
	})

	r.With(middleware.RequireSession).Method(http.MethodPost, "/bid", handlePlaceBid(p, l))
	r.With(middleware.RequireSession).Method(http.MethodPost, "/sale-offer", handleCreateOffer(p, l))

	r.With(middleware.RequireSession).Method(http.MethodGet, "/notification/stream", handleNotificationStream(cfg.Hub, l))
	notifications := newNotificationProxy(p, cfg.Hub)
	r.With(middleware.RequireSession).Handle("/notification", notifications)
	r.With(middleware.RequireSession).Handle("/notification/*", notifications)

	passthrough := p.Handler()
	for _, prefix := range proxiedPrefixes {
		mountPassthrough(r, prefix, passthrough)
	}

	return r
}

// mountPassthrough wires a backend prefix to the transparent proxy, skipping
// the method/pattern pairs handled by validated endpoints above
func mountPassthrough(r chi.Router, prefix string, h http.Handler) {
	validated := prefix == "/bid" || prefix == "/sale-offer"

	for _, method := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodHead,
	} {
		if validated && method == http.MethodPost {
			continue
		}
		r.Method(method, prefix, h)
	}
	r.Handle(prefix+"/*", h)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, map[string]string{"status": "ok"})
}
