package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/susek555/carmarket-gateway/internal/apperrors"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/models"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
	revokePath  = "/logout"

	defaultTimeout = 10 * time.Second
)

// Request is one outbound backend call. The body is kept as bytes so the
// same request can be dispatched again after a token refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	Bearer string
}

// Response is a fully buffered backend response. Buffering keeps the
// per-call timeout simple: once Dispatch returns there is nothing left on
// the wire.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Config struct {
	// Base URL of the marketplace backend, e.g. http://localhost:3000
	BaseURL string

	// Per-call timeout. Every backend call runs under one.
	Timeout time.Duration

	// HTTP client to use. Defaults to a plain http.Client
	HTTPClient *http.Client

	Logger logger.Logger
}

// Client talks to the marketplace backend. It owns the wire format of the
// auth endpoints and raw dispatch for everything the gateway proxies.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  logger.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base url must not be empty")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

// Login exchanges credentials for a session. A rejected login comes back as
// apperrors.FieldErrors with whatever field lists the backend reported.
func (c *Client) Login(ctx context.Context, login string, password string) (models.Session, error) {
	var session models.Session

	body, err := json.Marshal(loginRequest{Login: login, Password: password})
	if err != nil {
		return session, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.Dispatch(ctx, Request{Method: http.MethodPost, Path: loginPath, Body: body})
	if err != nil {
		return session, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var decoded loginResponse
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return session, fmt.Errorf("failed to decode login response: %w", err)
		}
		return decoded.toSession()

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return session, decodeFieldErrors(resp.Body)

	default:
		c.logger.Warn("Unexpected login status", "status_code", resp.StatusCode)
		return session, fmt.Errorf("login failed with status %d: %w", resp.StatusCode, apperrors.ErrBackendUnavailable)
	}
}

// Refresh exchanges the refresh token for a new access token. Any non-2xx
// answer maps to apperrors.ErrRefreshTokenRejected.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}

	resp, err := c.Dispatch(ctx, Request{Method: http.MethodPost, Path: refreshPath, Body: body})
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("refresh failed with status %d: %w", resp.StatusCode, apperrors.ErrRefreshTokenRejected)
	}

	var decoded refreshResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if decoded.AccessToken == "" {
		return "", fmt.Errorf("refresh response without access token: %w", apperrors.ErrRefreshTokenRejected)
	}

	return decoded.AccessToken, nil
}

// Revoke invalidates the refresh token on the backend side
func (c *Client) Revoke(ctx context.Context, refreshToken string) error {
	body, err := json.Marshal(revokeRequest{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("failed to encode revoke request: %w", err)
	}

	resp, err := c.Dispatch(ctx, Request{Method: http.MethodPost, Path: revokePath, Body: body})
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revoke failed with status %d", resp.StatusCode)
	}

	return nil
}

// Dispatch performs one backend call under the per-call timeout and buffers
// the answer. It attaches the bearer token when one is present and otherwise
// forwards the request untouched; status interpretation is the caller's job.
func (c *Client) Dispatch(ctx context.Context, req Request) (Response, error) {
	var response Response

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return response, fmt.Errorf("failed to create request: %w", err)
	}

	for name, values := range req.Header {
		httpReq.Header[name] = values
	}
	if httpReq.Header.Get("Content-Type") == "" && len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return response, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return response, fmt.Errorf("failed to read response body: %w", err)
	}

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       buf,
	}, nil
}

// decodeFieldErrors maps the backend's structured failure body. A body that
// does not parse still resolves to a field-keyed error so forms always have
// something to render.
func decodeFieldErrors(body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		return apperrors.FieldErrors(envelope.Errors)
	}

	return apperrors.FieldErrors{"credentials": {"Invalid login or password"}}
}
