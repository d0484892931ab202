package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// PolicyRepository — контракт хранилища политик.
//
//go:generate mockery --name PolicyRepository --output ./mocks --outpkg mocks --case=underscore
type PolicyRepository interface {
	// Create вставляет новую политику (обычно в статусе proposed).
	Create(ctx context.Context, querier DBTX, policy *models.Policy) error

	// GetByID возвращает политику или models.ErrPolicyNotFound.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Policy, error)

	// FindBySessionCategoryStatus возвращает политики сессии в категории
	// с данным статусом. Основа транзакционной проверки эксклюзивности.
	FindBySessionCategoryStatus(ctx context.Context, querier DBTX, sessionID uuid.UUID, category string, status models.PolicyStatus) ([]*models.Policy, error)

	// ListBySessionStatus возвращает политики сессии с данным статусом.
	ListBySessionStatus(ctx context.Context, querier DBTX, sessionID uuid.UUID, status models.PolicyStatus) ([]*models.Policy, error)

	// ListDelayedEffectsDue возвращает действующие политики, чей отложенный
	// эффект должен примениться на данном ходу.
	ListDelayedEffectsDue(ctx context.Context, querier DBTX, sessionID uuid.UUID, turn int) ([]*models.Policy, error)

	// Save сохраняет измененную политику целиком (статус, shadow-поля, связи).
	Save(ctx context.Context, querier DBTX, policy *models.Policy) error
}
