package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/flightmode/competition-system/models"
	"github.com/flightmode/competition-system/repositories"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var referredBy *int
	if input.ReferralCode != "" {
		referrer, err := s.userRepo.GetByReferralCode(ctx, input.ReferralCode)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, ErrReferralCodeInvalid
			}
			return nil, fmt.Errorf("failed to resolve referral code: %w", err)
		}
		referredBy = &referrer.ID
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         models.RolePlayer,
		ReferralCode: uuid.NewString(),
		ReferredBy:   referredBy,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	user.PasswordHash = ""
	return user, nil
}
