package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// ReputationRepository — контракт хранилища записей репутации (игрок, когорта).
// Ленивое создание с дефолтом живет в сервисном слое через
// models.NewDefaultReputationRecord; хранилище отдает models.ErrNotFound.
//
//go:generate mockery --name ReputationRepository --output ./mocks --outpkg mocks --case=underscore
type ReputationRepository interface {
	// GetForUpdate читает запись под блокировкой строки (SELECT ... FOR UPDATE).
	// Вызывается только внутри транзакции: так конкурентные дельты к одной
	// записи выстраиваются в строго последовательный read-modify-write.
	GetForUpdate(ctx context.Context, querier DBTX, sessionID, playerID, cohortID uuid.UUID) (*models.ReputationRecord, error)

	// Upsert сохраняет запись целиком, включая ограниченную историю.
	Upsert(ctx context.Context, querier DBTX, rec *models.ReputationRecord) error

	// ListBySession возвращает все записи сессии (проход затухания).
	ListBySession(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]*models.ReputationRecord, error)

	// ListByPlayer возвращает записи игрока (эндорсменты, preview).
	ListByPlayer(ctx context.Context, querier DBTX, sessionID, playerID uuid.UUID) ([]*models.ReputationRecord, error)
}
