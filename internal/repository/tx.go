package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TxRunner выполняет функцию в границах транзакции.
// Сервисы зависят от интерфейса, чтобы в юнит-тестах подменять
// транзакции фейком без пула.
//
//go:generate mockery --name TxRunner --output ./mocks --outpkg mocks --case=underscore
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// Compile-time check
var _ TxRunner = (*PgxTxRunner)(nil)

// PgxTxRunner — pgx-реализация TxRunner с автоматическим rollback при ошибке.
type PgxTxRunner struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgxTxRunner создает новый исполнитель транзакций.
func NewPgxTxRunner(db *pgxpool.Pool, logger *zap.Logger) *PgxTxRunner {
	return &PgxTxRunner{
		db:     db,
		logger: logger.Named("TxRunner"),
	}
}

// WithTransaction выполняет fn в транзакции; при ошибке или панике — rollback.
func (h *PgxTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := h.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				h.logger.Error("Failed to rollback transaction after panic",
					zap.Error(rollbackErr),
					zap.Any("panic", p))
			}
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			h.logger.Error("Failed to rollback transaction",
				zap.Error(rollbackErr),
				zap.NamedError("original_error", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
