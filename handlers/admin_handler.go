package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flightmode/competition-system/services"
	"github.com/go-chi/chi/v5"
)

const maxImageUploadSize = 10 << 20 // 10MB

type AdminHandler struct {
	competitionService services.CompetitionService
}

func NewAdminHandler(competitionService services.CompetitionService) *AdminHandler {
	return &AdminHandler{competitionService: competitionService}
}

func (h *AdminHandler) CreateCompetition(w http.ResponseWriter, r *http.Request) {
	var input services.CreateCompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.CreateCompetition(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadImage принимает multipart-форму с полем "image" и загружает файл в
// объектное хранилище.
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, errors.New("image file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	competition, err := h.competitionService.UploadImage(r.Context(), id, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) CloseCompetition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}

	competition, err := h.competitionService.CloseCompetition(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordWinner сохраняет победителя, определённого внешним розыгрышем.
func (h *AdminHandler) RecordWinner(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}

	var input struct {
		UserID int `json:"user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	competition, err := h.competitionService.RecordWinner(r.Context(), id, input.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
