package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/susek555/carmarket-gateway/internal/backend"
	"github.com/susek555/carmarket-gateway/internal/fetch"
	"github.com/susek555/carmarket-gateway/internal/handlers"
	"github.com/susek555/carmarket-gateway/internal/handlers/middleware"
	"github.com/susek555/carmarket-gateway/internal/logger"
	"github.com/susek555/carmarket-gateway/internal/metrics"
	"github.com/susek555/carmarket-gateway/internal/notify"
	"github.com/susek555/carmarket-gateway/internal/session"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger       logger.Logger
	hub          *notify.Hub
	loginLimiter *middleware.RateLimiter
}

func NewServerApp(c *Config) (*ServerApp, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	backendClient, err := backend.NewClient(backend.Config{
		BaseURL: c.BackendURL,
		Timeout: c.BackendTimeout,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating backend client. Err: %w", err)
	}

	sessions, err := session.NewManager(session.Config{
		SecretKey:      c.SecretKey,
		AccessTokenTTL: c.AccessTokenTTL,
		SessionTTL:     c.SessionTTL,
		CookieSecure:   c.CookieSecure,
		Metrics:        collector,
		Logger:         log,
	}, backendClient)
	if err != nil {
		return nil, fmt.Errorf("error while creating session manager. Err: %w", err)
	}

	fetcher, err := fetch.NewClient(fetch.Config{
		Metrics: collector,
		Logger:  log,
	}, backendClient, sessions)
	if err != nil {
		return nil, fmt.Errorf("error while creating fetch client. Err: %w", err)
	}

	hub := notify.NewHub(notify.Config{Logger: log})
	loginLimiter := middleware.NewRateLimiter(middleware.DefaultLoginLimiterConfig())

	mux := handlers.NewRouter(handlers.RouterConfig{
		Sessions:       sessions,
		Fetcher:        fetcher,
		Hub:            hub,
		LoginLimiter:   loginLimiter,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		Logger:         log,
	})

	return &ServerApp{
		ListenAddr:   c.ListenAddr,
		Handler:      mux,
		logger:       log,
		hub:          hub,
		loginLimiter: loginLimiter,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		// Open notification streams never go idle, stop the hub first so
		// they end and Shutdown can drain
		s.hub.Stop()
		s.loginLimiter.Stop()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
