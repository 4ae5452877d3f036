package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RolePlayer UserRole = "player"
	RoleAdmin  UserRole = "admin"
)

type User struct {
	ID               int             `json:"id" db:"id"`
	FirstName        string          `json:"first_name" db:"first_name"`
	LastName         string          `json:"last_name" db:"last_name"`
	Email            string          `json:"email" db:"email"`
	PasswordHash     string          `json:"-" db:"password_hash"`
	Role             UserRole        `json:"role" db:"role"`
	StripeCustomerID *string         `json:"-" db:"stripe_customer_id"`
	Credits          decimal.Decimal `json:"credits" db:"credits"`
	TotalSpent       decimal.Decimal `json:"total_spent" db:"total_spent"`
	ReferralCode     string          `json:"referral_code" db:"referral_code"`
	ReferredBy       *int            `json:"referred_by,omitempty" db:"referred_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}
