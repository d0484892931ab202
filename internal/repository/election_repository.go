package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// ElectionRepository — контракт хранилища результатов выборов.
//
//go:generate mockery --name ElectionRepository --output ./mocks --outpkg mocks --case=underscore
type ElectionRepository interface {
	// SaveResult сохраняет итоговый подсчет голосов провинции.
	SaveResult(ctx context.Context, querier DBTX, result *models.ElectionResult) error

	// ListBySessionTurn возвращает результаты выборов сессии за ход.
	ListBySessionTurn(ctx context.Context, querier DBTX, sessionID uuid.UUID, turn int) ([]*models.ElectionResult, error)

	// RegisterCandidate записывает (или обновляет) кандидата сессии.
	// Кандидатов выставляет внешний игровой слой до срабатывания выборов.
	RegisterCandidate(ctx context.Context, querier DBTX, sessionID uuid.UUID, candidate *models.Candidate) error

	// ListCandidates возвращает зарегистрированных кандидатов сессии.
	ListCandidates(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]models.Candidate, error)
}
