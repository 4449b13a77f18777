package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/insights"
	"interview-intel/internal/pipeline"
	"interview-intel/internal/store"
)

type analysisRequest struct {
	MaxExperiences int  `json:"max_experiences"`
	ForceRefresh   bool `json:"force_refresh"`
}

// handleAnalysis runs the full pipeline synchronously and streams the
// run report back. Unknown companies are accepted: the first run for a
// company is what creates it.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "company")

	var body analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.MaxExperiences <= 0 {
		body.MaxExperiences = pipeline.DefaultMaxExperiences
	}

	result := s.manager.RunCompleteAnalysis(r.Context(), name, body.MaxExperiences, body.ForceRefresh)

	code := http.StatusOK
	if result.Status == pipeline.StatusError {
		code = http.StatusInternalServerError
	}
	respondJSON(w, code, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("companies")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "companies list required")
		return
	}
	names := make([]string, 0, 5)
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if len(names) < 2 {
		respondError(w, http.StatusBadRequest, "At least 2 companies required for comparison")
		return
	}
	if len(names) > 5 {
		respondError(w, http.StatusBadRequest, "Maximum 5 companies allowed for comparison")
		return
	}

	snapshots := make([]insights.CompanySnapshot, 0, len(names))
	for _, name := range names {
		snap, err := s.snapshotCompany(r.Context(), name)
		if err != nil {
			log.Error().Err(err).Str("company", name).Msg("Failed to snapshot company insights")
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		snapshots = append(snapshots, snap)
	}

	comp := insights.Compare(snapshots)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"companies":       comp.Companies,
		"comparison_data": comp.ComparisonData,
		"comparison_insights": map[string]interface{}{
			"common_topics": comp.CommonTopics,
		},
		"generated_at": comp.GeneratedAt,
	})
}

// snapshotCompany loads one company's stored insight rows for comparison.
// Missing companies and missing insights become per-company errors in the
// response instead of failing the whole request.
func (s *Server) snapshotCompany(ctx context.Context, name string) (insights.CompanySnapshot, error) {
	if _, err := s.store.GetCompany(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return insights.CompanySnapshot{Company: name, Err: "Company not found"}, nil
		}
		return insights.CompanySnapshot{}, err
	}
	rows, err := s.store.ListInsights(ctx, name)
	if err != nil {
		return insights.CompanySnapshot{}, err
	}
	if len(rows) == 0 {
		return insights.CompanySnapshot{Company: name, Err: "No insights available"}, nil
	}

	topics := make([]insights.TopicSummary, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, insights.TopicSummary{
			Topic:     row.Topic,
			TopicName: row.DisplayName,
			Category:  row.Category,
			Frequency: row.WeightedFrequency,
			Priority:  row.Priority,
		})
	}
	return insights.CompanySnapshot{
		Company:    name,
		SampleSize: rows[0].SampleSize,
		Topics:     topics,
	}, nil
}
