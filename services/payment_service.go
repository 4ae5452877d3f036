package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/flightmode/competition-system/payments"
	"github.com/flightmode/competition-system/repositories"
	"github.com/shopspring/decimal"
)

// amountEpsilon accommodates currency-rounding noise only: half of the
// smallest GBP unit. Anything larger is a manipulated or stale price.
var amountEpsilon = decimal.NewFromFloat(0.005)

// minorUnitFactor converts major units to pence.
var minorUnitFactor = decimal.NewFromInt(100)

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, userID, competitionID int, requestedAmount decimal.Decimal) (string, error)
}

type paymentService struct {
	competitionRepo repositories.CompetitionRepository
	userRepo        repositories.UserRepository
	provider        payments.Provider
	currency        string
	logger          *slog.Logger
}

func NewPaymentService(
	competitionRepo repositories.CompetitionRepository,
	userRepo repositories.UserRepository,
	provider payments.Provider,
	currency string,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		competitionRepo: competitionRepo,
		userRepo:        userRepo,
		provider:        provider,
		currency:        currency,
		logger:          logger,
	}
}

// CreatePaymentIntent re-derives the canonical entry price server-side and
// only then contacts the processor. This is the last line of defense against
// a client-manipulated amount: the intent is always minted for the stored
// entry price, never the requested one.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, userID, competitionID int, requestedAmount decimal.Decimal) (string, error) {
	competition, err := s.competitionRepo.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return "", ErrCompetitionNotFound
		}
		return "", fmt.Errorf("failed to load competition %d: %w", competitionID, err)
	}

	expectedAmount := competition.EntryPrice
	if requestedAmount.Sub(expectedAmount).Abs().GreaterThan(amountEpsilon) {
		return "", ErrAmountMismatch
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	amountInPence := expectedAmount.Mul(minorUnitFactor).Round(0).IntPart()

	intent, err := s.provider.CreateIntent(ctx, amountInPence, s.currency, customerID, map[string]string{
		"user_id":        strconv.Itoa(userID),
		"competition_id": strconv.Itoa(competitionID),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("payment intent creation failed",
				slog.Int("competition_id", competitionID),
				slog.Int("user_id", userID),
				slog.Any("error", err))
		}
		return "", ErrPaymentProvider
	}

	return intent.ClientSecret, nil
}

// ensureCustomer возвращает customer id пользователя у процессора, заводя
// его при первом платеже и сохраняя для последующих.
func (s *paymentService) ensureCustomer(ctx context.Context, userID int) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user.StripeCustomerID != nil {
		return *user.StripeCustomerID, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, user.Email)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("payment customer creation failed",
				slog.Int("user_id", userID), slog.Any("error", err))
		}
		return "", ErrPaymentProvider
	}

	if err := s.userRepo.UpdateStripeCustomerID(ctx, userID, customerID); err != nil {
		return "", fmt.Errorf("failed to store customer id for user %d: %w", userID, err)
	}
	return customerID, nil
}
