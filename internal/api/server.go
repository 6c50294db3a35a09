// Package api provides the HTTP surface of the Cardea service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openhealth-tools/cardea/internal/assess"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/history"
	"github.com/openhealth-tools/cardea/internal/risk"
	"github.com/openhealth-tools/cardea/internal/rulestore"
)

// Server serves the Cardea HTTP API.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer builds the router with the full middleware chain and routes.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, store *rulestore.Store, engine *risk.Engine, processor *assess.Processor, hist *history.Service, version string) *Server {
	handler := NewHandler(repo, cache, bus, store, engine, processor, hist, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Assessment
	router.Post("/analyze", handler.Analyze)

	// Patient history
	router.Get("/patients/{id}/history", handler.GetHistory)
	router.Get("/patients/{id}/latest", handler.GetLatest)

	// Rule tables
	router.Get("/rules", handler.ListRules)
	router.Get("/advice-rules", handler.ListAdviceRules)
	router.Post("/rules/reload", handler.ReloadRules)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the chi mux so tests can drive it directly.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler exposes the handler set for tests.
func (s *Server) Handler() *Handler {
	return s.handler
}
