package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry представляет оплаченную заявку пользователя на участие в конкурсе.
// Записи неизменяемы после создания; на пару (user_id, competition_id)
// может существовать не более одной записи.
type Entry struct {
	ID              int             `json:"id" db:"id"`
	CompetitionID   int             `json:"competition_id" db:"competition_id"`
	UserID          int             `json:"user_id" db:"user_id"`
	Answer          int             `json:"answer" db:"answer"`
	IsCorrect       bool            `json:"is_correct" db:"is_correct"`
	PaymentIntentID *string         `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
