package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CompetitionStatus представляет статусы конкурса, соответствующие ENUM в БД.
type CompetitionStatus string

const (
	StatusActive CompetitionStatus = "active"
	StatusClosed CompetitionStatus = "closed"
	StatusDrawn  CompetitionStatus = "drawn"
)

// SkillQuestion is the multiple-choice question a user has to answer before
// an entry is accepted. CorrectAnswer is a zero-based index into Options.
// Stored as a single jsonb column.
type SkillQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

func (q SkillQuestion) Value() (driver.Value, error) {
	return json.Marshal(q)
}

func (q *SkillQuestion) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("unsupported type %T for SkillQuestion", src)
	}
}

// Competition представляет конкурс с призом.
type Competition struct {
	ID             int               `json:"id" db:"id"`
	Title          string            `json:"title" db:"title"`
	Description    string            `json:"description" db:"description"`
	ImageKey       *string           `json:"-" db:"image_key"`
	ImageURL       *string           `json:"image_url,omitempty" db:"-"`
	PrizeValue     decimal.Decimal   `json:"prize_value" db:"prize_value"`
	EntryPrice     decimal.Decimal   `json:"entry_price" db:"entry_price"`
	MaxEntries     int               `json:"max_entries" db:"max_entries"`
	CurrentEntries int               `json:"current_entries" db:"current_entries"`
	Category       string            `json:"category" db:"category"`
	Destination    string            `json:"destination" db:"destination"`
	Duration       string            `json:"duration" db:"duration"`
	Includes       []string          `json:"includes" db:"includes"`
	SkillQuestion  SkillQuestion     `json:"skill_question" db:"skill_question"`
	Status         CompetitionStatus `json:"status" db:"status"`
	StartDate      time.Time         `json:"start_date" db:"start_date"`
	EndDate        time.Time         `json:"end_date" db:"end_date"`
	WinnerUserID   *int              `json:"winner_user_id,omitempty" db:"winner_user_id"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// IsFull сообщает, достигнут ли лимит заявок.
func (c *Competition) IsFull() bool {
	return c.CurrentEntries >= c.MaxEntries
}
