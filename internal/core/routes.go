package core

import (
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultRequestTimeout is the soft deadline applied to request contexts
// when no explicit RequestTimeout is configured.
const defaultRequestTimeout = 15 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in
// request logs to prevent accidental leakage of credentials or tokens.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes defines the top-level routing hierarchy.
// It registers the global middleware chain, the API routes, and the
// health check.
func (s *Server) MountRoutes() {
	// Global middleware registration (strict order matters).
	s.registerGlobalMiddleware()

	// The public contract lives at the root (POST /predict, GET /latest);
	// /v1 serves the same handlers as a versioned alias.
	s.router.Group(s.mountAPI)
	s.router.Route("/v1", s.mountAPI)

	s.router.Get("/health", s.HandleHealth)
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering rationale:
//  1. Recoverer        - Catches panics; outermost to catch all failures.
//  2. ContextTimeout   - Sets the soft request deadline.
//  3. RequestID        - Generates/propagates correlation ID for tracing.
//  4. SecurityHeaders  - Ensures all responses include security headers.
//  5. RequestLogger    - Structured logging (redacted headers).
//  6. CORS             - Browser security headers.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
}

// mountAPI registers all API endpoints via the registrars populated by the
// application entry point.
func (s *Server) mountAPI(r chi.Router) {
	for _, registrar := range s.Registrars {
		registrar(r)
	}
}

// requestTimeout returns the configured request timeout, falling back to the
// default when the config does not specify one.
func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

// corsAllowedOrigins returns the CORS allowed origins from configuration.
func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Security.CorsAllowedOrigins) > 0 {
		return s.Config.Security.CorsAllowedOrigins
	}
	return []string{"*"}
}
