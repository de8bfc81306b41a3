package fetch

import (
	"context"
	"errors"
	"net/http"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
)

// Refresher is the slice of the session manager the wrapper needs
type Refresher interface {
	// Refresh returns the session with a usable token, hot path when fresh
	Refresh(ctx context.Context, s models.Session) models.Session

	// ForceRefresh exchanges the refresh token unconditionally
	ForceRefresh(ctx context.Context, s models.Session) models.Session
}

// Dispatcher performs one raw backend call
type Dispatcher interface {
	Dispatch(ctx context.Context, req backend.Request) (backend.Response, error)
}

// Metrics hooks for dispatch outcomes
type Metrics interface {
	BackendStatus(status int)
	AuthRetried()
}

type noopMetrics struct{}

func (noopMetrics) BackendStatus(status int) {}
func (noopMetrics) AuthRetried()             {}

type Config struct {
	Metrics Metrics
	Logger  logger.Logger
}

// Client performs outbound backend calls with one-shot credential repair:
// attach the session's current token, dispatch, on 401/403 refresh once and
// retry once. It never interprets any other status and it never loops.
type Client struct {
	backend  Dispatcher
	sessions Refresher
	metrics  Metrics
	logger   logger.Logger
}

func NewClient(cfg Config, dispatcher Dispatcher, sessions Refresher) (*Client, error) {
	if dispatcher == nil || sessions == nil {
		return nil, errors.New("dispatcher and sessions must not be nil")
	}

	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Client{
		backend:  dispatcher,
		sessions: sessions,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}, nil
}

// Do performs one logical backend call on behalf of the session and returns
// the response plus the possibly refreshed session, so the caller can
// re-issue the cookie.
//
// The retried response is returned as-is even when it is itself 401/403:
// after one failed repair the caller sees the failed response and decides to
// force re-login. Deliberately not a loop.
func (c *Client) Do(ctx context.Context, s models.Session, req backend.Request) (backend.Response, models.Session, error) {
	// The token is resolved at send time, never a stale copy from earlier
	// in the request lifecycle
	s = c.sessions.Refresh(ctx, s)
	req.Bearer = s.AccessToken

	resp, err := c.backend.Dispatch(ctx, req)
	if err != nil {
		return backend.Response{}, s, err
	}
	c.metrics.BackendStatus(resp.StatusCode)

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, s, nil
	}

	// Anonymous calls have no credential to repair
	if !s.Authenticated() {
		return resp, s, nil
	}

	c.logger.Debug("Backend rejected token, refreshing once",
		"status", resp.StatusCode, "method", req.Method, "path", req.Path)
	c.metrics.AuthRetried()

	s = c.sessions.ForceRefresh(ctx, s)
	req.Bearer = s.AccessToken

	retried, err := c.backend.Dispatch(ctx, req)
	if err != nil {
		return backend.Response{}, s, err
	}
	c.metrics.BackendStatus(retried.StatusCode)

	return retried, s, nil
}
