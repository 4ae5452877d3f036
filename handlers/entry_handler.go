package handlers

import (
	"net/http"

	"github.com/flightmode/competition-system/middleware"
	"github.com/flightmode/competition-system/services"
	"github.com/shopspring/decimal"
)

type EntryHandler struct {
	entryService services.EntryService
}

func NewEntryHandler(entryService services.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

type createEntryRequest struct {
	CompetitionID int             `json:"competition_id"`
	Answer        int             `json:"answer"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication context")
		return
	}

	var input createEntryRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	validationErrors := make(map[string]string)
	if input.CompetitionID <= 0 {
		validationErrors["competition_id"] = "must be a positive integer"
	}
	if input.Answer < 0 {
		validationErrors["answer"] = "must not be negative"
	}
	if input.Amount.IsNegative() {
		validationErrors["amount"] = "must not be negative"
	}
	if len(validationErrors) > 0 {
		failedValidationResponse(w, r, validationErrors)
		return
	}

	entry, err := h.entryService.CreateEntry(r.Context(), services.CreateEntryInput{
		UserID:        userID,
		CompetitionID: input.CompetitionID,
		Answer:        input.Answer,
		Amount:        input.Amount,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, entry, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EntryHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication context")
		return
	}

	entries, err := h.entryService.ListUserEntries(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, entries, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
