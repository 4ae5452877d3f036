package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flightmode/competition-system/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrUserEmailConflict        = errors.New("user email conflict")
	ErrUserReferralCodeConflict = errors.New("user referral code conflict")
	ErrUserReferrerInvalid      = errors.New("invalid referrer reference")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	UpdateStripeCustomerID(ctx context.Context, id int, customerID string) error
	// AddSpend increments the user's lifetime spend; runs inside the
	// admission transaction.
	AddSpend(ctx context.Context, exec SQLExecutor, id int, amount decimal.Decimal) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, role, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, credits, total_spent, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.ReferralCode,
		user.ReferredBy,
	).Scan(&user.ID, &user.Credits, &user.TotalSpent, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "users_email_key" {
					return ErrUserEmailConflict
				}
				if pqErr.Constraint == "users_referral_code_key" {
					return ErrUserReferralCodeConflict
				}
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "users_referred_by_fkey" {
					return ErrUserReferrerInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := userSelectQuery + ` WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := userSelectQuery + ` WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

func (r *postgresUserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	query := userSelectQuery + ` WHERE referral_code = $1`
	return r.scanUser(ctx, query, code)
}

func (r *postgresUserRepository) UpdateStripeCustomerID(ctx context.Context, id int, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, customerID, id)
	if err != nil {
		return fmt.Errorf("failed to update stripe customer id: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) AddSpend(ctx context.Context, exec SQLExecutor, id int, amount decimal.Decimal) error {
	executor := r.getExecutor(exec)
	query := `UPDATE users SET total_spent = total_spent + $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to add user spend: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

const userSelectQuery = `
	SELECT id, first_name, last_name, email, password_hash, role,
		stripe_customer_id, credits, total_spent, referral_code, referred_by,
		created_at, updated_at
	FROM users`

// scanUser - вспомогательный метод для сканирования одного пользователя
func (r *postgresUserRepository) scanUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.StripeCustomerID,
		&user.Credits,
		&user.TotalSpent,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
