package models

import "github.com/shopspring/decimal"

// UserStats содержит сводные метрики пользователя для дашборда.
type UserStats struct {
	TotalEntries   int             `json:"totalEntries"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	ActiveEntries  int             `json:"activeEntries"`
	CorrectAnswers int             `json:"correctAnswers"`
}
