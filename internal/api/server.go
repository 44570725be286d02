package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/embedder"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/jobs"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/vectorstore"
)

// Prefix is the path prefix of every versioned route
const Prefix = "/api/v1"

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 10 * time.Second

// Deps are the components served over HTTP
type Deps struct {
	Runner   *jobs.Runner
	Searcher *searcher.Searcher
	Graph    *graphstore.Gateway
	Vectors  *vectorstore.Gateway
	Embedder *embedder.Gateway
	Version  string
}

// Server represents the HTTP API server
type Server struct {
	router *http.ServeMux
	server *http.Server
	addr   string
	logger *slog.Logger
	deps   Deps
}

// NewServer creates a new HTTP server instance
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		logger: logger,
		deps:   deps,
		router: http.NewServeMux(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.applyMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, then
// cancels background indexing jobs
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	err := s.server.Shutdown(ctx)
	if s.deps.Runner != nil {
		s.deps.Runner.Shutdown()
	}
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("server shut down")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler; the last one applied runs first
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware()(handler)
	return handler
}
