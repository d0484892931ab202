package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// CampaignRepository — контракт хранилища кампаний.
//
//go:generate mockery --name CampaignRepository --output ./mocks --outpkg mocks --case=underscore
type CampaignRepository interface {
	// Create вставляет новую активную кампанию.
	Create(ctx context.Context, querier DBTX, campaign *models.Campaign) error

	// FindActiveEndingAt возвращает активные кампании сессии с end_turn = turn.
	FindActiveEndingAt(ctx context.Context, querier DBTX, sessionID uuid.UUID, turn int) ([]*models.Campaign, error)

	// MarkCompleted необратимо переводит кампанию в completed.
	// Возвращает models.ErrCampaignAlreadyComplete, если кампания уже не active:
	// двойное применение буста — ошибка порядка вызовов.
	MarkCompleted(ctx context.Context, querier DBTX, id uuid.UUID) error
}
