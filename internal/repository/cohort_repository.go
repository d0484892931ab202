package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// CohortRepository — контракт хранилища демографических когорт.
//
//go:generate mockery --name CohortRepository --output ./mocks --outpkg mocks --case=underscore
type CohortRepository interface {
	// Create вставляет новую когорту. Используется при генерации сессии.
	Create(ctx context.Context, querier DBTX, cohort *models.Cohort) error

	// GetByID возвращает когорту по ID или models.ErrCohortNotFound.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Cohort, error)

	// ListBySession возвращает все когорты сессии.
	ListBySession(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]*models.Cohort, error)

	// ListByProvince возвращает когорты провинции с ненулевым населением.
	ListByProvince(ctx context.Context, querier DBTX, sessionID uuid.UUID, provinceID string) ([]*models.Cohort, error)

	// ListVotingEligible возвращает когорты с правом голоса,
	// упорядоченные по населению по убыванию (prediction/preview).
	ListVotingEligible(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]*models.Cohort, error)

	// UpdatePopulation обновляет население когорты (миграция, коррекции).
	UpdatePopulation(ctx context.Context, querier DBTX, id uuid.UUID, population int64) error
}
