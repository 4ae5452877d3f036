package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flightmode/competition-system/models"
	"github.com/lib/pq"
)

var (
	ErrEntryNotFound           = errors.New("entry not found")
	ErrEntryDuplicate          = errors.New("entry already exists for this user and competition")
	ErrEntryInvalidCompetition = errors.New("invalid competition reference")
	ErrEntryInvalidUser        = errors.New("invalid user reference")
)

type EntryRepository interface {
	// Create inserts the entry. The UNIQUE (user_id, competition_id)
	// constraint is the authoritative duplicate guard; violations map to
	// ErrEntryDuplicate.
	Create(ctx context.Context, exec SQLExecutor, entry *models.Entry) error
	GetByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Entry, error)
	ListByUser(ctx context.Context, userID int) ([]models.Entry, error)
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntryRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Entry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO entries (competition_id, user_id, answer, is_correct, payment_intent_id, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		e.CompetitionID, e.UserID, e.Answer, e.IsCorrect, e.PaymentIntentID, e.Amount,
	).Scan(&e.ID, &e.CreatedAt)

	return r.handleEntryError(err)
}

func (r *postgresEntryRepository) GetByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Entry, error) {
	query := `
		SELECT id, competition_id, user_id, answer, is_correct, payment_intent_id, amount, created_at
		FROM entries
		WHERE user_id = $1 AND competition_id = $2`

	e := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, userID, competitionID).Scan(
		&e.ID, &e.CompetitionID, &e.UserID, &e.Answer, &e.IsCorrect,
		&e.PaymentIntentID, &e.Amount, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresEntryRepository) ListByUser(ctx context.Context, userID int) ([]models.Entry, error) {
	query := `
		SELECT id, competition_id, user_id, answer, is_correct, payment_intent_id, amount, created_at
		FROM entries
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		if scanErr := rows.Scan(
			&e.ID, &e.CompetitionID, &e.UserID, &e.Answer, &e.IsCorrect,
			&e.PaymentIntentID, &e.Amount, &e.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *postgresEntryRepository) handleEntryError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "entries_user_id_competition_id_key" {
				return ErrEntryDuplicate
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "entries_competition_id_fkey":
				return ErrEntryInvalidCompetition
			case "entries_user_id_fkey":
				return ErrEntryInvalidUser
			}
		}
	}
	return err
}
