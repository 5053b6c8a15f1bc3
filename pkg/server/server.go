package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"veria-hq/arbiter/pkg/config"
	"veria-hq/arbiter/pkg/gateway"
	"veria-hq/arbiter/pkg/rules"
)

// Server is the decision engine's HTTP server.
type Server struct {
	config  *config.ServerConfig
	engine  *rules.Engine
	gateway *gateway.Gateway
	metrics http.Handler
	logger  *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. metricsHandler may be nil to disable /metrics.
func NewServer(cfg *config.ServerConfig, engine *rules.Engine, gw *gateway.Gateway, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		engine:  engine,
		gateway: gw,
		metrics: metricsHandler,
		logger:  logger.With("component", "server"),
	}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Handler builds the route table and middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/compliance/evaluations/recent", s.handleRecentEvaluations)
	mux.HandleFunc("POST /v1/eligibility/simulate", s.handleSimulate)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	// Only the evaluation route sits behind the full policy gate.
	evaluate := http.HandlerFunc(s.handleEvaluate)
	mux.Handle("POST /v1/compliance/evaluate", s.gateway.Middleware(evaluate))

	var handler http.Handler = mux
	handler = gateway.ProvenanceLoggerMiddleware(s.logger)(handler)
	handler = gateway.RequestIDMiddleware(handler)
	handler = gateway.RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
