package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/store"
)

type companyItem struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	DisplayName     string     `json:"display_name"`
	Industry        string     `json:"industry"`
	ExperienceCount int        `json:"experience_count"`
	LatestUpdate    *time.Time `json:"latest_update"`
	Status          string     `json:"status"`
}

type experienceItem struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	ContentPreview  string    `json:"content_preview"`
	Role            string    `json:"role"`
	ExperienceDate  time.Time `json:"experience_date"`
	SourcePlatform  string    `json:"source_platform"`
	SourceURL       string    `json:"source_url"`
	TimeWeight      float64   `json:"time_weight"`
	Success         bool      `json:"success"`
	DifficultyScore *float64  `json:"difficulty_score"`
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCompanies(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list companies")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	items := make([]companyItem, 0, len(list))
	for _, c := range list {
		status := "inactive"
		if c.ExperienceCount > 0 {
			status = "active"
		}
		display := c.DisplayName
		if display == "" {
			display = c.Name
		}
		item := companyItem{
			ID:              c.ID,
			Name:            c.Name,
			DisplayName:     display,
			Industry:        c.Industry,
			ExperienceCount: c.ExperienceCount,
			Status:          status,
		}
		if c.LatestUpdate.Valid {
			t := c.LatestUpdate.Time
			item.LatestUpdate = &t
		}
		items = append(items, item)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"companies":        items,
		"total_companies":  len(items),
		"target_companies": s.targets,
	})
}

func (s *Server) handleListExperiences(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "company")
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	if _, err := s.store.GetCompany(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Company not found")
			return
		}
		log.Error().Err(err).Str("company", name).Msg("Failed to look up company")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	exps, total, err := s.store.ListExperiencesPage(r.Context(), name, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("company", name).Msg("Failed to list experiences")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	items := make([]experienceItem, 0, len(exps))
	for i := range exps {
		exp := &exps[i]
		item := experienceItem{
			ID:             exp.ID,
			Title:          exp.Title,
			ContentPreview: contentPreview(exp.Content, 200),
			Role:           exp.Role,
			ExperienceDate: exp.ExperienceDate,
			SourcePlatform: exp.SourcePlatform,
			SourceURL:      exp.SourceURL,
			TimeWeight:     exp.TimeWeight,
			Success:        exp.Success,
		}
		if exp.DifficultyScore.Valid {
			score := exp.DifficultyScore.Float64
			item.DifficultyScore = &score
		}
		items = append(items, item)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"company":     name,
		"experiences": items,
		"pagination": map[string]interface{}{
			"total":    total,
			"limit":    limit,
			"offset":   offset,
			"has_next": offset+limit < total,
		},
	})
}
