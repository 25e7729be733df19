// Package http serves the scoring and backtest API over gorilla/mux.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/application"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/metrics"
	"github.com/sawpanic/ivcrush/internal/net/ratelimit"
)

// Checker reports the health of one optional backend
type Checker func(ctx context.Context) CheckResult

// Deps are the collaborators the handlers need. Limiter and Checks may be
// nil.
type Deps struct {
	Catalog *config.Catalog
	Service *application.BacktestService
	Metrics *metrics.Registry
	Limiter *ratelimit.Limiter
	Checks  map[string]Checker
	Version string
}

// Server is the HTTP API server
type Server struct {
	router  *mux.Router
	server  *http.Server
	config  ServerConfig
	deps    Deps
	started time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Workers        int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// ServerConfigFromRuntime derives the server settings from runtime settings
func ServerConfigFromRuntime(rt config.Runtime) ServerConfig {
	return ServerConfig{
		Host:           rt.HTTPHost,
		Port:           rt.HTTPPort,
		Workers:        rt.Workers,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 60 * time.Second,
		MaxBodyBytes:   32 << 20,
	}
}

// NewServer creates the server and its routes
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	if deps.Catalog == nil || deps.Service == nil || deps.Metrics == nil {
		return nil, errors.New("http server: catalog, service and metrics are required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		router:  mux.NewRouter(),
		config:  cfg,
		deps:    deps,
		started: time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.timeoutMiddleware)

	s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/configs", s.listConfigs).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/configs/{name}", s.getConfig).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/rank", s.rank).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/backtest", s.backtest).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/runs", s.listRuns).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/runs/{id}", s.getRun).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns host:port
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start listens and serves until Shutdown. A busy port is reported before
// serving begins.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("port %d is busy or unavailable: %w", s.config.Port, err)
	}

	log.Info().Str("addr", s.Addr()).Int("configs", len(s.deps.Catalog.All())).Msg("Starting HTTP server")
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
