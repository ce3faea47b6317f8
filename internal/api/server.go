// Package api provides the HTTP API server.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/confiabar/confiabar/internal/domain"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server with all routes registered.
func NewServer(cfg domain.ServerConfig, handler *Handler) *Server {
	r := chi.NewRouter()

	// Middleware chain, outermost first
	r.Use(CORSMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	// Health
	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready)

	// Registry lookups
	r.Get("/lookup/{cnpj}", handler.Lookup)
	r.Get("/score/{cnpj}", handler.Score)
	r.Get("/cep/{cep}", handler.LookupCEP)

	// Community reports and penalties
	r.Route("/establishments/{cnpj}", func(r chi.Router) {
		r.Post("/reports", handler.CreateReport)
		r.Get("/reports", handler.ListReports)
		r.Delete("/reports/{id}", handler.DeleteReport)
		r.Post("/penalties", handler.CreatePenalty)
		r.Get("/penalties", handler.ListPenalties)
	})

	// Search history
	r.Get("/history", handler.History)
	r.Delete("/history", handler.ClearHistory)

	// Aggregates and export
	r.Get("/stats", handler.Stats)
	r.Get("/export", handler.Export)

	// Alert rule management
	r.Get("/rules", handler.ListRules)
	r.Post("/rules", handler.CreateRule)
	r.Post("/rules/reload", handler.ReloadRules)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	return &Server{
		router:  r,
		handler: handler,
		server:  srv,
		config:  cfg,
	}
}

// Start begins serving HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	slog.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Handler returns the underlying handler.
func (s *Server) Handler() *Handler {
	return s.handler
}
