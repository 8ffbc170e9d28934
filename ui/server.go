package ui

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gospike/internal"
	"gospike/internal/config"
	"gospike/internal/report"
	"gospike/ports"
)

// Server exposes the analysis pipeline over HTTP: submit a dataset, run the
// sliding-window analysis, browse persisted runs.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	runs    ports.RunRepository // nil when persistence is disabled
	reports *report.Generator
	log     *internal.Logger
}

// NewServer creates a new web server instance
func NewServer(cfg *config.Config, runs ports.RunRepository) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		runs:    runs,
		reports: report.NewGenerator(),
		log:     internal.DefaultLogger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures the standard middleware chain
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/report", s.handleRunReport)
	})
}

// Handler returns the root http.Handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.log.Info("Starting gospike API on http://%s", addr)
	return http.ListenAndServe(addr, s.router)
}
