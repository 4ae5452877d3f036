package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/flightmode/competition-system/cache"
	"github.com/flightmode/competition-system/live"
	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/repositories"
	"github.com/flightmode/competition-system/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type CreateCompetitionInput struct {
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	PrizeValue    decimal.Decimal      `json:"prize_value"`
	EntryPrice    decimal.Decimal      `json:"entry_price"`
	MaxEntries    int                  `json:"max_entries"`
	Category      string               `json:"category"`
	Destination   string               `json:"destination"`
	Duration      string               `json:"duration"`
	Includes      []string             `json:"includes"`
	SkillQuestion models.SkillQuestion `json:"skill_question"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       time.Time            `json:"end_date"`
}

type ListCompetitionsInput struct {
	Category *string
	Status   *models.CompetitionStatus
}

type CompetitionService interface {
	ListCompetitions(ctx context.Context, input ListCompetitionsInput) ([]models.Competition, error)
	GetCompetitionByID(ctx context.Context, id int) (*models.Competition, error)
	CreateCompetition(ctx context.Context, input CreateCompetitionInput) (*models.Competition, error)
	CloseCompetition(ctx context.Context, id int) (*models.Competition, error)
	RecordWinner(ctx context.Context, id, winnerUserID int) (*models.Competition, error)
	UploadImage(ctx context.Context, id int, contentType string, file io.Reader) (*models.Competition, error)
	CloseExpired(ctx context.Context) error
}

type competitionService struct {
	competitionRepo repositories.CompetitionRepository
	entryRepo       repositories.EntryRepository
	uploader        storage.FileUploader
	hub             *live.Hub
	cache           *cache.CompetitionCache
	logger          *slog.Logger
}

func NewCompetitionService(
	competitionRepo repositories.CompetitionRepository,
	entryRepo repositories.EntryRepository,
	uploader storage.FileUploader,
	hub *live.Hub,
	competitionCache *cache.CompetitionCache,
	logger *slog.Logger,
) CompetitionService {
	return &competitionService{
		competitionRepo: competitionRepo,
		entryRepo:       entryRepo,
		uploader:        uploader,
		hub:             hub,
		cache:           competitionCache,
		logger:          logger,
	}
}

func (s *competitionService) ListCompetitions(ctx context.Context, input ListCompetitionsInput) ([]models.Competition, error) {
	competitions, err := s.competitionRepo.List(ctx, repositories.ListCompetitionsFilter{
		Category: input.Category,
		Status:   input.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	for i := range competitions {
		s.populateImageURL(&competitions[i])
	}
	return competitions, nil
}

func (s *competitionService) GetCompetitionByID(ctx context.Context, id int) (*models.Competition, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, id); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) && s.logger != nil {
			s.logger.Warn("competition cache read failed", slog.Int("competition_id", id), slog.Any("error", err))
		}
	}

	competition, err := s.competitionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", id, err)
	}
	s.populateImageURL(competition)

	if s.cache != nil {
		if err := s.cache.Set(ctx, competition); err != nil && s.logger != nil {
			s.logger.Warn("competition cache write failed", slog.Int("competition_id", id), slog.Any("error", err))
		}
	}

	return competition, nil
}

func (s *competitionService) CreateCompetition(ctx context.Context, input CreateCompetitionInput) (*models.Competition, error) {
	if err := validateCompetitionInput(input); err != nil {
		return nil, err
	}

	competition := &models.Competition{
		Title:         input.Title,
		Description:   input.Description,
		PrizeValue:    input.PrizeValue,
		EntryPrice:    input.EntryPrice,
		MaxEntries:    input.MaxEntries,
		Category:      input.Category,
		Destination:   input.Destination,
		Duration:      input.Duration,
		Includes:      input.Includes,
		SkillQuestion: input.SkillQuestion,
		Status:        models.StatusActive,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
	}

	if err := s.competitionRepo.Create(ctx, competition); err != nil {
		if errors.Is(err, repositories.ErrCompetitionTitleConflict) {
			return nil, ErrCompetitionTitleConflict
		}
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}

	return competition, nil
}

// CloseCompetition переводит конкурс из active в closed. Обратные переходы
// запрещены: статус движется только вперёд.
func (s *competitionService) CloseCompetition(ctx context.Context, id int) (*models.Competition, error) {
	competition, err := s.GetCompetitionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if competition.Status != models.StatusActive {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.competitionRepo.UpdateStatus(ctx, nil, id, models.StatusActive, models.StatusClosed); err != nil {
		if errors.Is(err, repositories.ErrCompetitionStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("failed to close competition %d: %w", id, err)
	}
	competition.Status = models.StatusClosed

	s.afterStatusChange(ctx, competition, live.EventStatusUpdated)
	return competition, nil
}

// RecordWinner записывает победителя, выбранного внешним розыгрышем, и
// переводит конкурс в drawn. Розыгрыш сам по себе вне этого сервиса.
func (s *competitionService) RecordWinner(ctx context.Context, id, winnerUserID int) (*models.Competition, error) {
	competition, err := s.GetCompetitionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if competition.Status != models.StatusClosed {
		return nil, ErrInvalidStatusTransition
	}

	if _, err := s.entryRepo.GetByUserAndCompetition(ctx, winnerUserID, id); err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrWinnerWithoutEntry
		}
		return nil, fmt.Errorf("failed to check winner entry: %w", err)
	}

	if err := s.competitionRepo.SetWinner(ctx, nil, id, winnerUserID); err != nil {
		if errors.Is(err, repositories.ErrCompetitionInvalidWinner) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, repositories.ErrCompetitionStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("failed to record winner for competition %d: %w", id, err)
	}
	competition.Status = models.StatusDrawn
	competition.WinnerUserID = &winnerUserID

	s.afterStatusChange(ctx, competition, live.EventWinnerDrawn)
	return competition, nil
}

func (s *competitionService) UploadImage(ctx context.Context, id int, contentType string, file io.Reader) (*models.Competition, error) {
	if s.uploader == nil {
		return nil, ErrUploaderMissing
	}

	competition, err := s.competitionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", id, err)
	}

	key := fmt.Sprintf("competitions/%d/image", id)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload competition image: %w", err)
	}

	if err := s.competitionRepo.UpdateImageKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to store competition image key: %w", err)
	}
	competition.ImageKey = &result.Key
	s.populateImageURL(competition)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("failed to invalidate competition cache", slog.Int("competition_id", id), slog.Any("error", err))
		}
	}

	return competition, nil
}

// CloseExpired closes every active competition whose end date has passed.
// Called by the scheduler in cmd/main.go.
func (s *competitionService) CloseExpired(ctx context.Context) error {
	expired, err := s.competitionRepo.ListExpiredActive(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to list expired competitions: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, competition := range expired {
		competition := competition
		g.Go(func() error {
			if err := s.competitionRepo.UpdateStatus(gCtx, nil, competition.ID, models.StatusActive, models.StatusClosed); err != nil {
				// Конкурс успел уйти из active между выборкой и апдейтом,
				// значит закрывать уже нечего.
				if errors.Is(err, repositories.ErrCompetitionStatusConflict) {
					return nil
				}
				return fmt.Errorf("failed to close expired competition %d: %w", competition.ID, err)
			}
			competition.Status = models.StatusClosed
			s.afterStatusChange(gCtx, competition, live.EventStatusUpdated)
			if s.logger != nil {
				s.logger.Info("competition closed by scheduler", slog.Int("competition_id", competition.ID))
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *competitionService) afterStatusChange(ctx context.Context, competition *models.Competition, eventType string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, competition.ID); err != nil && s.logger != nil {
			s.logger.Warn("failed to invalidate competition cache",
				slog.Int("competition_id", competition.ID), slog.Any("error", err))
		}
	}
	if s.hub != nil {
		payload := map[string]interface{}{
			"competition_id": competition.ID,
			"status":         competition.Status,
		}
		if competition.WinnerUserID != nil {
			payload["winner_user_id"] = *competition.WinnerUserID
		}
		s.hub.BroadcastToRoom(strconv.Itoa(competition.ID), live.Message{
			Type:    eventType,
			RoomID:  strconv.Itoa(competition.ID),
			Payload: payload,
		})
	}
}

func (s *competitionService) populateImageURL(competition *models.Competition) {
	if s.uploader == nil || competition.ImageKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*competition.ImageKey)
	if url != "" {
		competition.ImageURL = &url
	}
}

func validateCompetitionInput(input CreateCompetitionInput) error {
	if input.Title == "" {
		return ErrValidationFailed
	}
	if input.MaxEntries <= 0 {
		return ErrCompetitionInvalidCapacity
	}
	if input.EntryPrice.IsNegative() || input.PrizeValue.IsNegative() {
		return ErrCompetitionInvalidPrice
	}
	if !input.EndDate.After(input.StartDate) {
		return ErrCompetitionInvalidDateRange
	}
	q := input.SkillQuestion
	if q.Question == "" || len(q.Options) < 2 || q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return ErrCompetitionInvalidQuestion
	}
	return nil
}
