// Package api exposes the review and guideline endpoints over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scipeer/reviewd/internal/config"
	"github.com/scipeer/reviewd/internal/ingest"
	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/retrieval"
	"github.com/scipeer/reviewd/internal/review"
	"github.com/scipeer/reviewd/internal/vectorstore"
)

// Server is the HTTP API server for reviewd.
type Server struct {
	router   chi.Router
	reviewer *review.Orchestrator
	ingester *ingest.Orchestrator
	registry *retrieval.Registry
	store    *vectorstore.Store
	llmStats *llm.Stats
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(reviewer *review.Orchestrator, ingester *ingest.Orchestrator, registry *retrieval.Registry, store *vectorstore.Store, llmStats *llm.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		reviewer: reviewer,
		ingester: ingester,
		registry: registry,
		store:    store,
		llmStats: llmStats,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/healthz", s.handleHealth)

	// API endpoints; bearer auth only when a token is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.AuthToken != "" {
			r.Use(AuthMiddleware(s.cfg.AuthToken, s.log))
		}

		r.Get("/api/review/strategies", s.handleStrategies)
		r.Post("/api/review/analyze", s.handleAnalyze)
		r.Post("/api/review/structure", s.handleStructure)
		r.Get("/api/review/ws", s.handleReviewSocket)

		r.Post("/api/guidelines/upload", s.handleUpload)
		r.Get("/api/guidelines/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/guidelines/stats", s.handleGuidelineStats)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
