package services

import (
	"context"
	"fmt"

	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/repositories"
	"github.com/shopspring/decimal"
)

type DashboardService interface {
	GetUserStats(ctx context.Context, userID int) (models.UserStats, error)
}

type dashboardService struct {
	entryRepo repositories.EntryRepository
}

func NewDashboardService(entryRepo repositories.EntryRepository) DashboardService {
	return &dashboardService{entryRepo: entryRepo}
}

// GetUserStats сводит все заявки пользователя в метрики дашборда.
func (s *dashboardService) GetUserStats(ctx context.Context, userID int) (models.UserStats, error) {
	entries, err := s.entryRepo.ListByUser(ctx, userID)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("failed to load entries for user %d: %w", userID, err)
	}

	totalSpent := decimal.Zero
	correctAnswers := 0
	for _, entry := range entries {
		totalSpent = totalSpent.Add(entry.Amount)
		if entry.IsCorrect {
			correctAnswers++
		}
	}

	return models.UserStats{
		TotalEntries: len(entries),
		TotalSpent:   totalSpent,
		// Active entries currently mirrors the total count; entries whose
		// competition has since closed are not excluded.
		// TODO: count only entries in still-active competitions once product
		// decides how historical entries should read.
		ActiveEntries:  len(entries),
		CorrectAnswers: correctAnswers,
	}, nil
}
