package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flightmode/competition-system/models"
	"github.com/lib/pq"
)

var (
	ErrCompetitionNotFound       = errors.New("competition not found")
	ErrCompetitionCapacity       = errors.New("competition has no remaining capacity")
	ErrCompetitionInvalidWinner  = errors.New("invalid winner user reference")
	ErrCompetitionTitleConflict  = errors.New("competition title already exists")
	ErrCompetitionStatusConflict = errors.New("competition status changed concurrently")
)

type ListCompetitionsFilter struct {
	Category *string
	Status   *models.CompetitionStatus
	Limit    int
	Offset   int
}

type CompetitionRepository interface {
	Create(ctx context.Context, competition *models.Competition) error
	GetByID(ctx context.Context, id int) (*models.Competition, error)
	List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error)
	// IncrementEntries atomically bumps current_entries, but only while the
	// competition is active and below max_entries. Returns
	// ErrCompetitionCapacity when the guarded update matches no row.
	IncrementEntries(ctx context.Context, exec SQLExecutor, id int) error
	// UpdateStatus moves the competition from one status to another. The
	// from-status lives in the WHERE clause, so a concurrent transition
	// surfaces as ErrCompetitionStatusConflict instead of silently moving
	// the status backwards.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.CompetitionStatus) error
	// SetWinner records the winner and moves the competition from closed to
	// drawn, guarded the same way as UpdateStatus.
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerUserID int) error
	UpdateImageKey(ctx context.Context, id int, imageKey *string) error
	ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Competition, error)
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

func (r *postgresCompetitionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const competitionColumns = `
	id, title, description, image_key, prize_value, entry_price,
	max_entries, current_entries, category, destination, duration,
	includes, skill_question, status, start_date, end_date,
	winner_user_id, created_at, updated_at`

func (r *postgresCompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO competitions (
			title, description, image_key, prize_value, entry_price,
			max_entries, category, destination, duration, includes,
			skill_question, status, start_date, end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, current_entries, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		c.Title, c.Description, c.ImageKey, c.PrizeValue, c.EntryPrice,
		c.MaxEntries, c.Category, c.Destination, c.Duration, pq.Array(c.Includes),
		c.SkillQuestion, c.Status, c.StartDate, c.EndDate,
	).Scan(&c.ID, &c.CurrentEntries, &c.CreatedAt, &c.UpdatedAt)

	return r.handleCompetitionError(err)
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id int) (*models.Competition, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + competitionColumns + ` FROM competitions WHERE id = $1`

	c := &models.Competition{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Title, &c.Description, &c.ImageKey, &c.PrizeValue, &c.EntryPrice,
		&c.MaxEntries, &c.CurrentEntries, &c.Category, &c.Destination, &c.Duration,
		pq.Array(&c.Includes), &c.SkillQuestion, &c.Status, &c.StartDate, &c.EndDate,
		&c.WinnerUserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + competitionColumns + ` FROM competitions WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argID)
		args = append(args, *filter.Category)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	competitions := make([]models.Competition, 0)
	for rows.Next() {
		var c models.Competition
		if scanErr := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.ImageKey, &c.PrizeValue, &c.EntryPrice,
			&c.MaxEntries, &c.CurrentEntries, &c.Category, &c.Destination, &c.Duration,
			pq.Array(&c.Includes), &c.SkillQuestion, &c.Status, &c.StartDate, &c.EndDate,
			&c.WinnerUserID, &c.CreatedAt, &c.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		competitions = append(competitions, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return competitions, nil
}

func (r *postgresCompetitionRepository) IncrementEntries(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	// The WHERE clause is the capacity guarantee: two concurrent admissions
	// cannot both match once only one slot remains.
	query := `
		UPDATE competitions
		SET current_entries = current_entries + 1, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND current_entries < max_entries`

	result, err := executor.ExecContext(ctx, query, id, models.StatusActive)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionCapacity)
}

func (r *postgresCompetitionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.CompetitionStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE competitions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionStatusConflict)
}

func (r *postgresCompetitionRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerUserID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE competitions
		SET winner_user_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`
	result, err := executor.ExecContext(ctx, query, winnerUserID, models.StatusDrawn, id, models.StatusClosed)
	if err != nil {
		return r.handleCompetitionError(err)
	}
	return checkAffectedRows(result, ErrCompetitionStatusConflict)
}

func (r *postgresCompetitionRepository) UpdateImageKey(ctx context.Context, id int, imageKey *string) error {
	executor := r.getExecutor(nil)
	query := `UPDATE competitions SET image_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, imageKey, id)
	if err != nil {
		return fmt.Errorf("failed to update competition image key: %w", err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

// ListExpiredActive возвращает активные конкурсы, у которых end_date уже в прошлом.
func (r *postgresCompetitionRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Competition, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + competitionColumns + ` FROM competitions WHERE status = $1 AND end_date <= $2`

	rows, err := executor.QueryContext(ctx, query, models.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired competitions: %w", err)
	}
	defer rows.Close()

	var competitions []*models.Competition
	for rows.Next() {
		var c models.Competition
		if scanErr := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.ImageKey, &c.PrizeValue, &c.EntryPrice,
			&c.MaxEntries, &c.CurrentEntries, &c.Category, &c.Destination, &c.Duration,
			pq.Array(&c.Includes), &c.SkillQuestion, &c.Status, &c.StartDate, &c.EndDate,
			&c.WinnerUserID, &c.CreatedAt, &c.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan expired competition: %w", scanErr)
		}
		competitions = append(competitions, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during expired competitions iteration: %w", err)
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) handleCompetitionError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "competitions_title_key" {
				return ErrCompetitionTitleConflict
			}
		case "23503":
			if pqErr.Constraint == "competitions_winner_user_id_fkey" {
				return ErrCompetitionInvalidWinner
			}
		case "23514": // check_violation on the capacity pair
			return ErrCompetitionCapacity
		}
	}
	return err
}
