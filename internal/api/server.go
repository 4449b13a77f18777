// Package api exposes the analysis pipeline over HTTP: a banner with an
// endpoint map, health, company listings with pagination, stored
// insights and recommendations, on-demand analysis runs, company
// comparison, and the time-decay curve behind the study visuals. All
// responses are JSON, including 404s and panics caught by the recoverer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/decay"
	"interview-intel/internal/pipeline"
	"interview-intel/internal/store"
)

// Orchestrator is the slice of the pipeline manager the facade drives.
type Orchestrator interface {
	RunCompleteAnalysis(ctx context.Context, company string, maxExperiences int, forceRefresh bool) *pipeline.AnalysisResult
	Health(ctx context.Context) *pipeline.HealthReport
}

// Config carries the server knobs that do not arrive as dependencies.
type Config struct {
	Version      string
	Targets      []string
	MaxAgeMonths int
}

// Server holds the state shared by all HTTP handlers.
type Server struct {
	store        store.Store
	manager      Orchestrator
	calc         *decay.Calculator
	targets      []string
	maxAgeMonths int
	version      string
}

// NewServer creates the HTTP facade over the given store and pipeline.
func NewServer(st store.Store, manager Orchestrator, calc *decay.Calculator, cfg Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}
	maxAge := cfg.MaxAgeMonths
	if maxAge <= 0 {
		maxAge = 60
	}
	return &Server{
		store:        st,
		manager:      manager,
		calc:         calc,
		targets:      cfg.Targets,
		maxAgeMonths: maxAge,
		version:      version,
	}
}

// Router assembles the middleware chain and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// CORS has to run first so preflight requests succeed.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	// Subrouters copy the 404/405 handlers at mount time, so these have
	// to be registered before any Route call.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]string{
			"error":   "Endpoint not found",
			"message": "Check /api/docs for available endpoints",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":   "Method not allowed",
			"message": fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path),
		})
	})

	r.Get("/", s.handleRoot)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/docs", s.handleDocs)
		r.Get("/health", s.handleHealth)
		r.Get("/decay-curve", s.handleDecayCurve)
		r.Get("/compare", s.handleCompare)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Get("/{company}/experiences", s.handleListExperiences)
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/{company}", s.handleInsights)
			r.Get("/{company}/recommendations", s.handleRecommendations)
		})

		r.Post("/analysis/{company}", s.handleAnalysis)
	})

	return r
}

// Run serves on addr until ctx is canceled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP facade listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	log.Info().Msg("HTTP facade stopped")
	return nil
}

// requestLogger emits one structured line per request after it finishes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("Request handled")
	})
}
