// Package server exposes the analysis pipeline over HTTP: an upload
// endpoint guarded by per-client rate limiting, a health endpoint, and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rootcauseai/rootcause/internal/analyzer"
	"github.com/rootcauseai/rootcause/internal/cache"
	"github.com/rootcauseai/rootcause/internal/config"
	"github.com/rootcauseai/rootcause/internal/cost"
	"github.com/rootcauseai/rootcause/internal/llm"
	"github.com/rootcauseai/rootcause/internal/metrics"
	"github.com/rootcauseai/rootcause/internal/ratelimit"
)

// DefaultMaxUploadBytes caps analyze uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

const shutdownTimeout = 5 * time.Second

// Server wires the analyzer and its collaborators into an HTTP service.
type Server struct {
	cfg      *config.Config
	engine   *analyzer.Analyzer
	limiter  *ratelimit.Limiter
	store    *cache.Cache
	costs    *cost.Tracker
	provider llm.Provider
	metrics  *metrics.Metrics
	logger   *slog.Logger
	router   *gin.Engine
}

// New builds a Server and its route table. The limiter, store, and
// costs tracker are optional: a nil limiter disables admission control
// and nil store/costs drop their sections from the health report.
func New(
	cfg *config.Config,
	engine *analyzer.Analyzer,
	limiter *ratelimit.Limiter,
	store *cache.Cache,
	costs *cost.Tracker,
	provider llm.Provider,
	logger *slog.Logger,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("server: analyzer cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("server: provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("server: logger cannot be nil")
	}

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		limiter:  limiter,
		store:    store,
		costs:    costs,
		provider: provider,
		metrics:  metrics.New(),
		logger:   logger,
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	if !s.cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestID())
	router.Use(s.requestLogger())
	router.Use(s.observeRequests())

	router.POST("/analyze", s.admit(), s.handleAnalyze)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return router
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the context is canceled or a SIGINT/SIGTERM
// arrives, then drains in-flight requests before returning.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting http server",
		"addr", addr,
		"provider", s.cfg.LLM.Provider,
		"cache_enabled", s.cfg.Cache.Enabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// SetLimits applies new rate limits to the running limiter, used by
// config hot reload.
func (s *Server) SetLimits(limits ratelimit.Limits) {
	if s.limiter != nil {
		s.limiter.SetLimits(limits)
	}
}
