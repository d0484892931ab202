package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// SessionRepository — контракт хранилища игровых сессий.
//
//go:generate mockery --name SessionRepository --output ./mocks --outpkg mocks --case=underscore
type SessionRepository interface {
	// Create вставляет новую сессию.
	Create(ctx context.Context, querier DBTX, session *models.GameSession) error

	// GetByID возвращает сессию или models.ErrSessionNotFound.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.GameSession, error)

	// ListActive возвращает активные сессии (восстановление таймеров на старте).
	ListActive(ctx context.Context, querier DBTX) ([]*models.GameSession, error)

	// SetStatus атомарно переводит сессию из статуса from в to.
	// Если текущий статус не from — models.ErrTurnInProgress для перехода
	// active->processing, иначе models.ErrSessionNotActive.
	SetStatus(ctx context.Context, querier DBTX, id uuid.UUID, from, to models.SessionStatus) error

	// AdvanceTurn сохраняет продвинутый счетчик хода, внутриигровую дату
	// и метки реального времени нового хода.
	AdvanceTurn(ctx context.Context, querier DBTX, session *models.GameSession) error
}
