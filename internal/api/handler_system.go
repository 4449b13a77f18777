package api

import (
	"net/http"
	"time"

	"interview-intel/internal/crawl"
	"interview-intel/internal/pipeline"
	"interview-intel/internal/ratelimit"
	"interview-intel/internal/store"
)

type healthResponse struct {
	Status            string                     `json:"status"`
	Timestamp         time.Time                  `json:"timestamp"`
	Database          string                     `json:"database"`
	Version           string                     `json:"version"`
	ScraperStats      map[string]crawl.Stats     `json:"scraper_stats"`
	RateLimiterStats  map[string]ratelimit.Stats `json:"rate_limiter_stats"`
	SessionStats      *pipeline.SessionStats     `json:"session_stats,omitempty"`
	SystemPerformance *store.Totals              `json:"system_performance,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Interview Intelligence System",
		"status":  "running",
		"version": s.version,
		"endpoints": map[string]string{
			"health":      "/api/health",
			"companies":   "/api/companies/",
			"insights":    "/api/insights/{company}",
			"analysis":    "/api/analysis/{company}",
			"comparison":  "/api/compare",
			"decay_curve": "/api/decay-curve",
			"metrics":     "/metrics",
			"docs":        "/api/docs",
		},
	})
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":       "Interview Intelligence System API",
		"version":     s.version,
		"description": "Interview preparation insights built from scraped experience reports",
		"endpoints": []map[string]string{
			{"method": "GET", "path": "/api/health", "description": "Component health with scraper and session statistics"},
			{"method": "GET", "path": "/api/companies/", "description": "Tracked companies with experience counts"},
			{"method": "GET", "path": "/api/companies/{company}/experiences", "description": "Paginated experience listing (limit, offset)"},
			{"method": "GET", "path": "/api/insights/{company}", "description": "Stored topic insights for a company"},
			{"method": "GET", "path": "/api/insights/{company}/recommendations", "description": "Study plan derived from stored insights"},
			{"method": "POST", "path": "/api/analysis/{company}", "description": "Run the collection and analysis pipeline (max_experiences, force_refresh)"},
			{"method": "GET", "path": "/api/compare", "description": "Compare topic profiles across 2-5 companies (?companies=a,b)"},
			{"method": "GET", "path": "/api/decay-curve", "description": "Time-decay weight curve points (?months=N)"},
			{"method": "GET", "path": "/metrics", "description": "Prometheus metrics"},
		},
	})
}

// handleHealth always answers 200; degradation is reported in the body so
// monitors can alert on content rather than availability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.manager.Health(r.Context())

	status := "healthy"
	database := "connected"
	if !report.DatabaseHealth {
		status = "degraded"
		database = "disconnected"
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status:            status,
		Timestamp:         report.Timestamp,
		Database:          database,
		Version:           s.version,
		ScraperStats:      report.ScraperStats,
		RateLimiterStats:  report.RateLimiterStats,
		SessionStats:      report.SessionStats,
		SystemPerformance: report.SystemPerformance,
	})
}

func (s *Server) handleDecayCurve(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", s.maxAgeMonths)
	if months < 1 || months > s.maxAgeMonths {
		months = s.maxAgeMonths
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lambda":       s.calc.Lambda,
		"months_range": months,
		"points":       s.calc.CurvePoints(months),
		"description":  "Relative weight given to an experience by its age in months",
	})
}
