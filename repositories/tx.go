package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner выполняет функцию внутри одной транзакции БД. Репозитории
// принимают SQLExecutor, поэтому сервисы могут объединять несколько
// записей в атомарную единицу, не зная о *sql.Tx напрямую.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
