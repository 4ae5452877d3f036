package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/flightmode/competition-system/cache"
	"github.com/flightmode/competition-system/live"
	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/repositories"
	"github.com/shopspring/decimal"
)

type CreateEntryInput struct {
	UserID        int
	CompetitionID int
	Answer        int
	Amount        decimal.Decimal
}

type EntryService interface {
	CreateEntry(ctx context.Context, input CreateEntryInput) (*models.Entry, error)
	ListUserEntries(ctx context.Context, userID int) ([]models.Entry, error)
}

type entryService struct {
	txRunner        repositories.TxRunner
	entryRepo       repositories.EntryRepository
	competitionRepo repositories.CompetitionRepository
	userRepo        repositories.UserRepository
	hub             *live.Hub
	cache           *cache.CompetitionCache
	logger          *slog.Logger
}

func NewEntryService(
	txRunner repositories.TxRunner,
	entryRepo repositories.EntryRepository,
	competitionRepo repositories.CompetitionRepository,
	userRepo repositories.UserRepository,
	hub *live.Hub,
	competitionCache *cache.CompetitionCache,
	logger *slog.Logger,
) EntryService {
	return &entryService{
		txRunner:        txRunner,
		entryRepo:       entryRepo,
		competitionRepo: competitionRepo,
		userRepo:        userRepo,
		hub:             hub,
		cache:           competitionCache,
		logger:          logger,
	}
}

// CreateEntry admits a user into a competition. Checks run in order and the
// first failure wins: existence, active status, remaining capacity, no
// duplicate, exact amount. The pre-checks are only the fast path; the unique
// (user_id, competition_id) constraint and the guarded current_entries
// increment enforce the same invariants at the storage boundary, so
// concurrent admissions from other processes cannot slip past.
func (s *entryService) CreateEntry(ctx context.Context, input CreateEntryInput) (*models.Entry, error) {
	competition, err := s.competitionRepo.GetByID(ctx, input.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to load competition %d: %w", input.CompetitionID, err)
	}

	if competition.Status != models.StatusActive {
		return nil, ErrCompetitionClosed
	}

	if competition.IsFull() {
		return nil, ErrCompetitionFull
	}

	_, err = s.entryRepo.GetByUserAndCompetition(ctx, input.UserID, input.CompetitionID)
	if err == nil {
		return nil, ErrDuplicateEntry
	}
	if !errors.Is(err, repositories.ErrEntryNotFound) {
		return nil, fmt.Errorf("failed to check existing entry: %w", err)
	}

	// The client-supplied amount is an assertion, not the price. Zero
	// tolerance here: the charge recorded on the entry is always the
	// canonical entry price.
	if !input.Amount.Equal(competition.EntryPrice) {
		return nil, ErrAmountMismatch
	}

	entry := &models.Entry{
		CompetitionID: input.CompetitionID,
		UserID:        input.UserID,
		Answer:        input.Answer,
		IsCorrect:     input.Answer == competition.SkillQuestion.CorrectAnswer,
		Amount:        competition.EntryPrice,
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.entryRepo.Create(ctx, exec, entry); err != nil {
			return err
		}
		if err := s.competitionRepo.IncrementEntries(ctx, exec, competition.ID); err != nil {
			return err
		}
		return s.userRepo.AddSpend(ctx, exec, input.UserID, entry.Amount)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEntryDuplicate):
			return nil, ErrDuplicateEntry
		case errors.Is(err, repositories.ErrCompetitionCapacity):
			return nil, ErrCompetitionFull
		case errors.Is(err, repositories.ErrEntryInvalidCompetition):
			return nil, ErrCompetitionNotFound
		case errors.Is(err, repositories.ErrEntryInvalidUser), errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to admit entry (competition %d, user %d): %w",
			input.CompetitionID, input.UserID, err)
	}

	s.afterAdmission(ctx, competition)

	return entry, nil
}

func (s *entryService) ListUserEntries(ctx context.Context, userID int) ([]models.Entry, error) {
	entries, err := s.entryRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for user %d: %w", userID, err)
	}
	return entries, nil
}

// afterAdmission fires the side effects that do not belong to the admission
// transaction: cache invalidation and the live counter broadcast.
func (s *entryService) afterAdmission(ctx context.Context, competition *models.Competition) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, competition.ID); err != nil && s.logger != nil {
			s.logger.Warn("failed to invalidate competition cache",
				slog.Int("competition_id", competition.ID), slog.Any("error", err))
		}
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(strconv.Itoa(competition.ID), live.Message{
			Type:   live.EventEntriesUpdated,
			RoomID: strconv.Itoa(competition.ID),
			Payload: map[string]int{
				"competition_id":  competition.ID,
				"current_entries": competition.CurrentEntries + 1,
			},
		})
	}
}
