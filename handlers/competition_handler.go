package handlers

import (
	"net/http"
	"strconv"

	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/services"
	"github.com/go-chi/chi/v5"
)

type CompetitionHandler struct {
	competitionService services.CompetitionService
}

func NewCompetitionHandler(competitionService services.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{competitionService: competitionService}
}

// List отдаёт конкурсы с фильтрами ?category и ?status.
// Без явного статуса показываются только активные.
func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	input := services.ListCompetitionsInput{}

	if category := r.URL.Query().Get("category"); category != "" {
		input.Category = &category
	}

	status := models.StatusActive
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = models.CompetitionStatus(raw)
	}
	input.Status = &status

	competitions, err := h.competitionService.ListCompetitions(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, competitions, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CompetitionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}

	competition, err := h.competitionService.GetCompetitionByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
