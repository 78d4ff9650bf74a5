// Package core provides the API chassis for the SafeWave platform. It
// creates the chi router and enforces cross-cutting concerns -- security,
// logging, request correlation, and error handling -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safewave/internal/config"
)

// RouteRegistrar mounts a group of domain handler routes onto the router.
// The indirection avoids import cycles between core and handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the dependencies of the SafeWave API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// Registrars mount domain routes under /v1; populated by the entry
	// point before MountRoutes.
	Registrars []RouteRegistrar

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. The caller is responsible for populating
// Registrars and calling MountRoutes afterwards; the separation lets tests
// customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server-owned resources.
// Connection pools are owned by the entry point and closed there.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown complete")
	return nil
}
