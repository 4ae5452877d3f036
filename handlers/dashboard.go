package handlers

import (
	"net/http"

	"github.com/flightmode/competition-system/middleware"
	"github.com/flightmode/competition-system/services"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
}

func NewDashboardHandler(s services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: s}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication context")
		return
	}

	stats, err := h.dashboardService.GetUserStats(r.Context(), userID)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats, nil)
}
