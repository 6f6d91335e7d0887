// Package api exposes the trading engine over HTTP: action endpoints for
// the session lifecycle and read endpoints for the polling dashboard.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/engine"
	"github.com/quantpilot/quantpilot/internal/metrics"
	"github.com/quantpilot/quantpilot/internal/session"
	"github.com/quantpilot/quantpilot/internal/stats"
)

// Server represents the HTTP server for QuantPilot.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux

	cfg     config.Config
	brk     broker.Broker
	engine  *engine.Engine
	session *session.Store
	stats   *stats.Aggregator
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg config.Config,
	brk broker.Broker,
	eng *engine.Engine,
	sess *session.Store,
	agg *stats.Aggregator,
	reg *metrics.Registry,
	logger *zap.Logger,
) *Server {
	mux := http.NewServeMux()

	var handler http.Handler = mux
	if reg != nil && cfg.Metrics.Enabled {
		handler = metrics.HTTPMiddleware(reg)(mux)
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		mux:     mux,
		cfg:     cfg,
		brk:     brk,
		engine:  eng,
		session: sess,
		stats:   agg,
	}

	s.setupRoutes(reg)
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(reg *metrics.Registry) {
	// session lifecycle
	s.mux.HandleFunc("POST /api/session/start", s.handleStart)
	s.mux.HandleFunc("POST /api/session/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/session/resume", s.handleResume)
	s.mux.HandleFunc("POST /api/session/stop", s.handleStop)
	s.mux.HandleFunc("POST /api/session/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/session/full-reset", s.handleFullReset)

	// manual execution
	s.mux.HandleFunc("POST /api/execute", s.handleExecute)
	s.mux.HandleFunc("POST /api/execute/single", s.handleExecuteSingle)

	// read side
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/trades", s.handleTrades)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if reg != nil && s.cfg.Metrics.Enabled {
		s.mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
