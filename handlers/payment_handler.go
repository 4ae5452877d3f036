package handlers

import (
	"errors"
	"net/http"

	"github.com/flightmode/competition-system/middleware"
	"github.com/flightmode/competition-system/services"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type createPaymentIntentRequest struct {
	CompetitionID int             `json:"competition_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication context")
		return
	}

	var input createPaymentIntentRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.CompetitionID <= 0 {
		badRequestResponse(w, r, errors.New("competition_id is required"))
		return
	}

	clientSecret, err := h.paymentService.CreatePaymentIntent(r.Context(), userID, input.CompetitionID, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"clientSecret": clientSecret,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
