package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flightmode/competition-system/middleware"
	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/repositories"
	"github.com/flightmode/competition-system/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

// fakeEntryStore реализует репозитории и TxRunner в памяти ровно в объёме,
// нужном для прогона запроса через HTTP-стек.
type fakeEntryStore struct {
	competition *models.Competition
	entries     map[int]*models.Entry // по user_id
	spend       map[int]decimal.Decimal
	nextID      int
}

func newFakeEntryStore(c *models.Competition) *fakeEntryStore {
	return &fakeEntryStore{
		competition: c,
		entries:     make(map[int]*models.Entry),
		spend:       make(map[int]decimal.Decimal),
		nextID:      1,
	}
}

func (s *fakeEntryStore) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

func (s *fakeEntryStore) Create(ctx context.Context, c *models.Competition) error { return nil }

func (s *fakeEntryStore) GetByID(ctx context.Context, id int) (*models.Competition, error) {
	if s.competition == nil || s.competition.ID != id {
		return nil, repositories.ErrCompetitionNotFound
	}
	copied := *s.competition
	return &copied, nil
}

func (s *fakeEntryStore) List(ctx context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	return nil, nil
}

func (s *fakeEntryStore) IncrementEntries(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if s.competition.Status != models.StatusActive || s.competition.IsFull() {
		return repositories.ErrCompetitionCapacity
	}
	s.competition.CurrentEntries++
	return nil
}

func (s *fakeEntryStore) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.CompetitionStatus) error {
	return nil
}

func (s *fakeEntryStore) SetWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerUserID int) error {
	return nil
}

func (s *fakeEntryStore) UpdateImageKey(ctx context.Context, id int, imageKey *string) error {
	return nil
}

func (s *fakeEntryStore) ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Competition, error) {
	return nil, nil
}

type fakeEntryRepo struct {
	s *fakeEntryStore
}

func (r fakeEntryRepo) Create(ctx context.Context, exec repositories.SQLExecutor, e *models.Entry) error {
	if _, exists := r.s.entries[e.UserID]; exists {
		return repositories.ErrEntryDuplicate
	}
	e.ID = r.s.nextID
	r.s.nextID++
	e.CreatedAt = time.Now()
	copied := *e
	r.s.entries[e.UserID] = &copied
	return nil
}

func (r fakeEntryRepo) GetByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Entry, error) {
	if e, ok := r.s.entries[userID]; ok && e.CompetitionID == competitionID {
		copied := *e
		return &copied, nil
	}
	return nil, repositories.ErrEntryNotFound
}

func (r fakeEntryRepo) ListByUser(ctx context.Context, userID int) ([]models.Entry, error) {
	entries := make([]models.Entry, 0)
	if e, ok := r.s.entries[userID]; ok {
		entries = append(entries, *e)
	}
	return entries, nil
}

type fakeUserRepo struct {
	s *fakeEntryStore
}

func (r fakeUserRepo) Create(ctx context.Context, u *models.User) error { return nil }

func (r fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r fakeUserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r fakeUserRepo) UpdateStripeCustomerID(ctx context.Context, id int, customerID string) error {
	return nil
}

func (r fakeUserRepo) AddSpend(ctx context.Context, exec repositories.SQLExecutor, id int, amount decimal.Decimal) error {
	r.s.spend[id] = r.s.spend[id].Add(amount)
	return nil
}

func signTestToken(t *testing.T, userID int, role models.UserRole) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func newEntryTestRouter(t *testing.T) (*chi.Mux, *fakeEntryStore) {
	t.Helper()
	store := newFakeEntryStore(&models.Competition{
		ID:         1,
		Title:      "Win a trip to Iceland",
		EntryPrice: decimal.NewFromFloat(25.00),
		MaxEntries: 100,
		Status:     models.StatusActive,
		SkillQuestion: models.SkillQuestion{
			Question:      "What is the capital of Iceland?",
			Options:       []string{"Oslo", "Reykjavik", "Helsinki"},
			CorrectAnswer: 1,
		},
	})

	entryService := services.NewEntryService(
		store, fakeEntryRepo{store}, store, fakeUserRepo{store}, nil, nil, nil,
	)
	handler := NewEntryHandler(entryService)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Post("/api/entries", handler.Create)
		r.Get("/api/entries/user", handler.ListMine)
	})
	return router, store
}

func postEntry(t *testing.T, router http.Handler, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(payload))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEntryHandler_Create(t *testing.T) {
	router, store := newEntryTestRouter(t)
	token := signTestToken(t, 7, models.RolePlayer)

	rec := postEntry(t, router, token, map[string]interface{}{
		"competition_id": 1,
		"answer":         1,
		"amount":         "25.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry models.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, 7, entry.UserID)
	require.True(t, entry.IsCorrect)
	require.Equal(t, 1, store.competition.CurrentEntries)
}

func TestEntryHandler_Create_Unauthorized(t *testing.T) {
	router, _ := newEntryTestRouter(t)

	rec := postEntry(t, router, "", map[string]interface{}{
		"competition_id": 1,
		"answer":         1,
		"amount":         "25.00",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEntryHandler_Create_Duplicate(t *testing.T) {
	router, _ := newEntryTestRouter(t)
	token := signTestToken(t, 7, models.RolePlayer)

	body := map[string]interface{}{
		"competition_id": 1,
		"answer":         0,
		"amount":         "25.00",
	}
	rec := postEntry(t, router, token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postEntry(t, router, token, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryHandler_Create_AmountMismatch(t *testing.T) {
	router, _ := newEntryTestRouter(t)
	token := signTestToken(t, 7, models.RolePlayer)

	rec := postEntry(t, router, token, map[string]interface{}{
		"competition_id": 1,
		"answer":         1,
		"amount":         "19.99",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryHandler_Create_ValidationErrors(t *testing.T) {
	router, _ := newEntryTestRouter(t)
	token := signTestToken(t, 7, models.RolePlayer)

	rec := postEntry(t, router, token, map[string]interface{}{
		"competition_id": 0,
		"answer":         -1,
		"amount":         "25.00",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEntryHandler_ListMine(t *testing.T) {
	router, _ := newEntryTestRouter(t)
	token := signTestToken(t, 7, models.RolePlayer)

	rec := postEntry(t, router, token, map[string]interface{}{
		"competition_id": 1,
		"answer":         1,
		"amount":         "25.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/entries/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, req)

	require.Equal(t, http.StatusOK, listRec.Code)
	var entries []models.Entry
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
}
