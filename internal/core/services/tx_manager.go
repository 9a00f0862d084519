package services

import (
	"context"
	"database/sql"

	"github.com/Kingsley-codes/funlearn-backend/internal/plugins/postgres"
)

// TxManager runs a function inside a database transaction, carried on the
// context for repositories to pick up via postgres.GetExecutor.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (tm *TxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(postgres.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
