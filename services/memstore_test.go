package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/repositories"
	"github.com/shopspring/decimal"
)

type entryKey struct {
	userID        int
	competitionID int
}

// memStore это общее in-memory хранилище для тестов сервисов. Обёртки
// memCompetitionRepo, memEntryRepo и memUserRepo реализуют интерфейсы
// репозиториев поверх него, а сам memStore выступает TxRunner с откатом
// по снимку, чтобы проверять атомарность допуска.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	competitions      map[int]*models.Competition
	entries           map[entryKey]*models.Entry
	users             map[int]*models.User
	nextCompetitionID int
	nextEntryID       int
}

func newMemStore() *memStore {
	return &memStore{
		competitions:      make(map[int]*models.Competition),
		entries:           make(map[entryKey]*models.Entry),
		users:             make(map[int]*models.User),
		nextCompetitionID: 1,
		nextEntryID:       1,
	}
}

func (s *memStore) competitionRepo() repositories.CompetitionRepository {
	return memCompetitionRepo{s: s}
}

func (s *memStore) entryRepo() repositories.EntryRepository {
	return memEntryRepo{s: s}
}

func (s *memStore) userRepo() repositories.UserRepository {
	return memUserRepo{s: s}
}

func (s *memStore) putCompetition(c *models.Competition) *models.Competition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextCompetitionID
		s.nextCompetitionID++
	}
	copied := *c
	s.competitions[c.ID] = &copied
	return c
}

func (s *memStore) putUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *u
	s.users[u.ID] = &copied
	return u
}

func (s *memStore) userSpend(id int) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.TotalSpent
	}
	return decimal.Zero
}

func (s *memStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *memStore) currentEntries(competitionID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.competitions[competitionID]; ok {
		return c.CurrentEntries
	}
	return 0
}

type memSnapshot struct {
	competitions map[int]models.Competition
	entries      map[entryKey]models.Entry
	users        map[int]models.User
	nextEntryID  int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		competitions: make(map[int]models.Competition, len(s.competitions)),
		entries:      make(map[entryKey]models.Entry, len(s.entries)),
		users:        make(map[int]models.User, len(s.users)),
		nextEntryID:  s.nextEntryID,
	}
	for id, c := range s.competitions {
		snap.competitions[id] = *c
	}
	for key, e := range s.entries {
		snap.entries[key] = *e
	}
	for id, u := range s.users {
		snap.users[id] = *u
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitions = make(map[int]*models.Competition, len(snap.competitions))
	s.entries = make(map[entryKey]*models.Entry, len(snap.entries))
	s.users = make(map[int]*models.User, len(snap.users))
	for id, c := range snap.competitions {
		copied := c
		s.competitions[id] = &copied
	}
	for key, e := range snap.entries {
		copied := e
		s.entries[key] = &copied
	}
	for id, u := range snap.users {
		copied := u
		s.users[id] = &copied
	}
	s.nextEntryID = snap.nextEntryID
}

// RunInTx сериализует транзакции и откатывает все изменения при ошибке.
func (s *memStore) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memCompetitionRepo struct {
	s *memStore
}

func (r memCompetitionRepo) Create(ctx context.Context, c *models.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.competitions {
		if existing.Title == c.Title {
			return repositories.ErrCompetitionTitleConflict
		}
	}
	c.ID = r.s.nextCompetitionID
	r.s.nextCompetitionID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	copied := *c
	r.s.competitions[c.ID] = &copied
	return nil
}

func (r memCompetitionRepo) GetByID(ctx context.Context, id int) (*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	copied := *c
	return &copied, nil
}

func (r memCompetitionRepo) List(ctx context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]models.Competition, 0)
	for _, c := range r.s.competitions {
		if filter.Category != nil && c.Category != *filter.Category {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		result = append(result, *c)
	}
	// Тот же порядок, что и ORDER BY created_at DESC в Postgres.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r memCompetitionRepo) IncrementEntries(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return repositories.ErrCompetitionCapacity
	}
	if c.Status != models.StatusActive || c.CurrentEntries >= c.MaxEntries {
		return repositories.ErrCompetitionCapacity
	}
	c.CurrentEntries++
	return nil
}

func (r memCompetitionRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.CompetitionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok || c.Status != from {
		return repositories.ErrCompetitionStatusConflict
	}
	c.Status = to
	return nil
}

func (r memCompetitionRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerUserID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok || c.Status != models.StatusClosed {
		return repositories.ErrCompetitionStatusConflict
	}
	c.WinnerUserID = &winnerUserID
	c.Status = models.StatusDrawn
	return nil
}

func (r memCompetitionRepo) UpdateImageKey(ctx context.Context, id int, imageKey *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.ImageKey = imageKey
	return nil
}

func (r memCompetitionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var expired []*models.Competition
	for _, c := range r.s.competitions {
		if c.Status == models.StatusActive && !c.EndDate.After(now) {
			copied := *c
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

type memEntryRepo struct {
	s *memStore
}

func (r memEntryRepo) Create(ctx context.Context, exec repositories.SQLExecutor, e *models.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := entryKey{userID: e.UserID, competitionID: e.CompetitionID}
	if _, exists := r.s.entries[key]; exists {
		return repositories.ErrEntryDuplicate
	}
	e.ID = r.s.nextEntryID
	r.s.nextEntryID++
	e.CreatedAt = time.Now()
	copied := *e
	r.s.entries[key] = &copied
	return nil
}

func (r memEntryRepo) GetByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[entryKey{userID: userID, competitionID: competitionID}]
	if !ok {
		return nil, repositories.ErrEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (r memEntryRepo) ListByUser(ctx context.Context, userID int) ([]models.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := make([]models.Entry, 0)
	for _, e := range r.s.entries {
		if e.UserID == userID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

type memUserRepo struct {
	s *memStore
}

func (r memUserRepo) Create(ctx context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.ReferralCode == u.ReferralCode {
			return repositories.ErrUserReferralCodeConflict
		}
	}
	u.ID = len(r.s.users) + 1
	u.CreatedAt = time.Now()
	copied := *u
	r.s.users[u.ID] = &copied
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r memUserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ReferralCode == code {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r memUserRepo) UpdateStripeCustomerID(ctx context.Context, id int, customerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.StripeCustomerID = &customerID
	return nil
}

func (r memUserRepo) AddSpend(ctx context.Context, exec repositories.SQLExecutor, id int, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.TotalSpent = u.TotalSpent.Add(amount)
	return nil
}
