package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/store"
)

// confidenceThreshold is the generator's cutoff, echoed in metadata so
// clients know how scores were filtered.
const confidenceThreshold = 0.7

type insightView struct {
	TopicName         string    `json:"topic_name"`
	Category          string    `json:"category"`
	WeightedFrequency float64   `json:"weighted_frequency"`
	PriorityLevel     string    `json:"priority_level"`
	ConfidenceScore   float64   `json:"confidence_score"`
	SampleSize        int       `json:"sample_size"`
	LastUpdated       time.Time `json:"last_updated"`
}

type analysisMetadata struct {
	SampleSize          int       `json:"sample_size"`
	LastUpdated         time.Time `json:"last_updated"`
	DataQualityScore    float64   `json:"data_quality_score"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	TotalTopics         int       `json:"total_topics,omitempty"`
}

type insightsResponse struct {
	Company          string                 `json:"company"`
	Insights         map[string]insightView `json:"insights"`
	Top5Topics       []string               `json:"top_5_topics,omitempty"`
	HighPriority     []string               `json:"high_priority_topics,omitempty"`
	AnalysisMetadata analysisMetadata       `json:"analysis_metadata"`
	Status           string                 `json:"status"`
	Message          string                 `json:"message"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "company")

	if !s.requireCompany(w, r, name) {
		return
	}

	total, err := s.store.CountExperiences(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("company", name).Msg("Failed to count experiences")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if total == 0 {
		respondJSON(w, http.StatusOK, insightsResponse{
			Company:  name,
			Insights: map[string]insightView{},
			AnalysisMetadata: analysisMetadata{
				LastUpdated:         time.Now().UTC(),
				ConfidenceThreshold: confidenceThreshold,
			},
			Status:  "no_data",
			Message: fmt.Sprintf("No interview experiences found for %s. Please run data collection first.", name),
		})
		return
	}

	rows, err := s.store.ListInsights(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("company", name).Msg("Failed to list insights")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	latest, err := s.store.LatestScrapedAt(r.Context(), name)
	if err != nil || latest.IsZero() {
		latest = time.Now().UTC()
	}

	if len(rows) == 0 {
		respondJSON(w, http.StatusOK, insightsResponse{
			Company:  name,
			Insights: map[string]insightView{},
			AnalysisMetadata: analysisMetadata{
				SampleSize:          total,
				LastUpdated:         latest,
				DataQualityScore:    qualityScore(total),
				ConfidenceThreshold: confidenceThreshold,
			},
			Status:  "pending_analysis",
			Message: fmt.Sprintf("Analysis has not run for %s yet. Trigger it via POST /api/analysis/%s.", name, name),
		})
		return
	}

	// Rows arrive ordered by weighted frequency descending, so the first
	// five map keys double as the top-5 list.
	insightMap := make(map[string]insightView, len(rows))
	top5 := make([]string, 0, 5)
	high := make([]string, 0)
	for i, row := range rows {
		insightMap[row.Topic] = insightView{
			TopicName:         row.DisplayName,
			Category:          row.Category,
			WeightedFrequency: row.WeightedFrequency,
			PriorityLevel:     row.Priority,
			ConfidenceScore:   row.Confidence,
			SampleSize:        row.SampleSize,
			LastUpdated:       row.AnalysisDate,
		}
		if i < 5 {
			top5 = append(top5, row.Topic)
		}
		if row.Priority == "HIGH" {
			high = append(high, row.Topic)
		}
	}

	respondJSON(w, http.StatusOK, insightsResponse{
		Company:      name,
		Insights:     insightMap,
		Top5Topics:   top5,
		HighPriority: high,
		AnalysisMetadata: analysisMetadata{
			SampleSize:          total,
			LastUpdated:         latest,
			DataQualityScore:    qualityScore(total),
			ConfidenceThreshold: confidenceThreshold,
			TotalTopics:         len(rows),
		},
		Status:  "live_data",
		Message: fmt.Sprintf("Generated insights from %d interview experiences", total),
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "company")

	if !s.requireCompany(w, r, name) {
		return
	}

	total, err := s.store.CountExperiences(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("company", name).Msg("Failed to count experiences")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	rows, err := s.store.ListInsights(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("company", name).Msg("Failed to list insights")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if total == 0 || len(rows) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"company": name,
			"recommendations": map[string]interface{}{
				"high_priority":   []string{},
				"medium_priority": []string{},
				"low_priority":    []string{},
			},
			"study_plan": map[string]interface{}{
				"estimated_weeks": 0,
				"hours_per_week":  0,
				"focus_areas":     []string{},
			},
			"status":  "no_data",
			"message": fmt.Sprintf("No analysis available for %s. Run data collection and analysis first.", name),
		})
		return
	}

	// 1. Bucket stored topics by priority, capped per tier.
	high := make([]string, 0, 5)
	medium := make([]string, 0, 5)
	low := make([]string, 0, 3)
	systemDesignFocus := false
	for _, row := range rows {
		switch row.Priority {
		case "HIGH":
			if len(high) < 5 {
				high = append(high, row.DisplayName)
			}
		case "MEDIUM":
			if len(medium) < 5 {
				medium = append(medium, row.DisplayName)
			}
		default:
			if len(low) < 3 {
				low = append(low, row.DisplayName)
			}
		}
		if row.Category == "system_design" && (row.Priority == "HIGH" || row.Priority == "MEDIUM") {
			systemDesignFocus = true
		}
	}

	focus := []string{"Coding"}
	if systemDesignFocus {
		focus = append(focus, "System Design")
	}

	// 2. Size the plan off topic breadth and sample depth.
	weeks := len(rows)
	if weeks < 4 {
		weeks = 4
	}
	if weeks > 12 {
		weeks = 12
	}
	hours := 12
	if total >= 10 {
		hours = 15
	}

	// 3. Profile the raw experiences for role and difficulty context.
	exps, err := s.store.ListExperiences(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("company", name).Msg("Failed to list experiences")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	diffDist := map[string]int{"easy": 0, "medium": 0, "hard": 0}
	roleDist := map[string]int{}
	for i := range exps {
		if exps[i].DifficultyScore.Valid {
			switch score := exps[i].DifficultyScore.Float64; {
			case score <= 3:
				diffDist["easy"]++
			case score <= 7:
				diffDist["medium"]++
			default:
				diffDist["hard"]++
			}
		}
		if role := exps[i].Role; role != "" {
			roleDist[role]++
		}
	}
	primaryRole := "Software Engineer"
	best := 0
	for role, n := range roleDist {
		if n > best || (n == best && best > 0 && role < primaryRole) {
			primaryRole = role
			best = n
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"company": name,
		"recommendations": map[string]interface{}{
			"high_priority":   high,
			"medium_priority": medium,
			"low_priority":    low,
		},
		"study_plan": map[string]interface{}{
			"estimated_weeks": weeks,
			"hours_per_week":  hours,
			"focus_areas":     focus,
			"primary_role":    primaryRole,
		},
		"analysis_insights": map[string]interface{}{
			"total_experiences_analyzed": total,
			"difficulty_distribution":    diffDist,
			"role_distribution":          roleDist,
			"topic_coverage":             len(rows),
		},
		"status":  "data_driven",
		"message": fmt.Sprintf("Recommendations based on analysis of %d interview experiences", total),
	})
}

// requireCompany writes the 404 body and returns false when the company
// is unknown.
func (s *Server) requireCompany(w http.ResponseWriter, r *http.Request, name string) bool {
	if _, err := s.store.GetCompany(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error":   "Company not found",
				"company": name,
			})
			return false
		}
		log.Error().Err(err).Str("company", name).Msg("Failed to look up company")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	return true
}
