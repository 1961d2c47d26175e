package api

import (
	"net/http"
	"strconv"

	"github.com/QTest-hq/casegen/internal/llm"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// OptionsResponse lists the selectable generation options
type OptionsResponse struct {
	Frameworks      []model.Framework     `json:"frameworks"`
	Patterns        []model.DesignPattern `json:"patterns"`
	Languages       []model.Language      `json:"languages"`
	LanguageChoice  []model.Framework     `json:"languageChoice"`
	DefaultLanguage model.Language        `json:"defaultLanguage"`
}

// UsageResponse is the LLM usage report
type UsageResponse struct {
	Stats  llm.UsageStats    `json:"stats"`
	Budget llm.BudgetStatus  `json:"budget"`
	Recent []llm.UsageRecord `json:"recent"`
}

func (s *Server) getOptions(w http.ResponseWriter, r *http.Request) {
	resp := OptionsResponse{
		Frameworks:      model.Frameworks(),
		Patterns:        model.Patterns(),
		Languages:       model.Languages(),
		DefaultLanguage: model.DefaultLanguage,
	}
	for _, fw := range resp.Frameworks {
		if fw.SupportsLanguageChoice() {
			resp.LanguageChoice = append(resp.LanguageChoice, fw)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, nonNilRuns(runs))
}

func (s *Server) listSessionRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	runs, err := s.runs.ListSessionRuns(r.Context(), chi.URLParam(r, "sessionID"), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list session runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, nonNilRuns(runs))
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	runID := chi.URLParam(r, "runID")
	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		log.Error().Err(err).Str("run", runID).Msg("failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) getUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		respondError(w, http.StatusServiceUnavailable, "usage tracking not configured")
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, UsageResponse{
		Stats:  s.usage.GetStats(),
		Budget: s.usage.GetBudgetStatus(),
		Recent: s.usage.RecentRecords(limit),
	})
}

// limitParam reads ?limit=, defaulting and clamping it.
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}

func nonNilRuns(runs []model.GenerationRun) []model.GenerationRun {
	if runs == nil {
		return []model.GenerationRun{}
	}
	return runs
}
