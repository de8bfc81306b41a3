package handlers

import (
	"io"
	"net/http"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/handlers/render"
	"github.com/susek555/carmarket-gateway/internal/handlers/sessionctx"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
)

// Generous cap, image uploads go through here
const maxProxyBody = 10 << 20

// Request headers worth forwarding to the backend. Everything else,
// including the browser's cookies, stays on this side.
var forwardedHeaders = []string{"Content-Type", "Accept", "Accept-Language"}

// proxy forwards resource calls to the backend through the authenticated
// fetch client and mirrors status and body back unchanged. Status
// interpretation belongs to the browser-side caller, not here.
type proxy struct {
	fetcher  fetchClient
	sessions cookieWriter
	logger   logger.Logger
}

func newProxy(fetcher fetchClient, sessions cookieWriter, l logger.Logger) *proxy {
	return &proxy{fetcher: fetcher, sessions: sessions, logger: l}
}

func (p *proxy) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, _, ok := p.forward(w, r)
		if !ok {
			return
		}
		copyResponse(w, resp)
	})
}

// forward performs the backend call and syncs the session cookie when the
// fetch pipeline rolled or tagged the session. On a false return the error
// response is already written.
func (p *proxy) forward(w http.ResponseWriter, r *http.Request) (backend.Response, models.Session, bool) {
	s, _ := sessionctx.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBody))
	if err != nil {
		render.ServiceError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return backend.Response{}, s, false
	}

	req := backend.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: pickHeaders(r.Header),
		Body:   body,
	}

	resp, current, err := p.fetcher.Do(r.Context(), s, req)
	if err != nil {
		p.logger.Warn("Backend call failed", "method", r.Method, "path", r.URL.Path, "error", err)
		render.ServiceError(w, "Backend unavailable", http.StatusBadGateway)
		return backend.Response{}, current, false
	}

	p.syncCookie(w, s, current)

	return resp, current, true
}

// syncCookie re-issues the session cookie whenever the pipeline changed the
// session, including tagging it with RefreshTokenError so the client learns
// it must re-login
func (p *proxy) syncCookie(w http.ResponseWriter, original models.Session, current models.Session) {
	if current == original || !current.Authenticated() {
		return
	}

	if err := p.sessions.IssueCookie(w, current); err != nil {
		p.logger.Error("Failed to re-issue session cookie", "error", err)
	}
}

func pickHeaders(h http.Header) http.Header {
	picked := http.Header{}
	for _, name := range forwardedHeaders {
		if values, ok := h[http.CanonicalHeaderKey(name)]; ok {
			picked[http.CanonicalHeaderKey(name)] = values
		}
	}
	return picked
}

func copyResponse(w http.ResponseWriter, resp backend.Response) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
