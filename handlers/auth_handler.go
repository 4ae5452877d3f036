package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flightmode/competition-system/middleware"
	"github.com/flightmode/competition-system/services"
	"github.com/golang-jwt/jwt/v4"
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
}

func NewAuthHandler(authService services.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" || input.FirstName == "" {
		badRequestResponse(w, r, errors.New("first name, email, and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"user": user,
	}

	err = writeJSON(w, http.StatusCreated, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token": tokenString,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CurrentUser возвращает профиль аутентифицированного пользователя.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication context")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, user, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
