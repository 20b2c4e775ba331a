// Package server provides the HTTP API for the guarded retrieval service.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Kruthik-JP/guard-rail-NER/internal/guardrail"
	"github.com/Kruthik-JP/guard-rail-NER/internal/index"
	"github.com/Kruthik-JP/guard-rail-NER/internal/otel"
	"github.com/Kruthik-JP/guard-rail-NER/internal/pipeline"
)

const defaultTimeout = 60 * time.Second

// Server holds all dependencies for the HTTP API.
type Server struct {
	router       *chi.Mux
	pipeline     *pipeline.Pipeline
	guard        *guardrail.Facade
	store        *index.Store
	documentsDir string
	corsOrigins  []string
	rateLimit    float64
	rateBurst    int
	startTime    time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithCORSOrigins sets allowed CORS origins (e.g. ["*"]).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithRateLimit sets the global request rate limit. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

// NewServer builds a Server with the required dependencies and optional Option(s).
func NewServer(
	p *pipeline.Pipeline,
	guard *guardrail.Facade,
	store *index.Store,
	documentsDir string,
	opts ...Option,
) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		pipeline:     p,
		guard:        guard,
		store:        store,
		documentsDir: documentsDir,
		corsOrigins:  []string{"*"},
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler (chi router with all middleware
// and routes).
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.MiddlewareWithStatus())
	r.Use(CORSMiddleware(s.corsOrigins))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.rateLimit, s.rateBurst))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/query", s.handleQuery)
		r.Post("/v1/sanitize", s.handleSanitize)
		r.Post("/v1/analyze", s.handleAnalyze)
		r.Post("/v1/index/build", s.handleIndexBuild)
	})

	return r
}
