package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

const (
	campaignFields = `id, session_id, player_id, cohort_id, start_turn, duration_turns,
        end_turn, boost, status, created_at, updated_at`

	insertCampaignQuery = `
        INSERT INTO campaigns
            (id, session_id, player_id, cohort_id, start_turn, duration_turns,
             end_turn, boost, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	findActiveCampaignsEndingAtQuery = `
        SELECT ` + campaignFields + `
        FROM campaigns
        WHERE session_id = $1 AND end_turn = $2 AND status = 'active'
        ORDER BY created_at
    `
	// Переход необратимый: условие по статусу гарантирует, что буст
	// не будет применен дважды.
	markCampaignCompletedQuery = `
        UPDATE campaigns SET status = 'completed', updated_at = $2
        WHERE id = $1 AND status = 'active'
    `
)

// Compile-time check to ensure pgCampaignRepository implements the interface
var _ CampaignRepository = (*pgCampaignRepository)(nil)

type pgCampaignRepository struct {
	logger *zap.Logger
}

// NewPgCampaignRepository creates a new repository instance.
func NewPgCampaignRepository(logger *zap.Logger) CampaignRepository {
	return &pgCampaignRepository{
		logger: logger.Named("PgCampaignRepo"),
	}
}

func (r *pgCampaignRepository) Create(ctx context.Context, querier DBTX, campaign *models.Campaign) error {
	if campaign.DurationTurns <= 0 {
		return fmt.Errorf("%w: campaign duration must be positive", models.ErrInvalidInput)
	}
	_, err := querier.Exec(ctx, insertCampaignQuery,
		campaign.ID, campaign.SessionID, campaign.PlayerID, campaign.CohortID,
		campaign.StartTurn, campaign.DurationTurns, campaign.EndTurn,
		campaign.Boost, campaign.Status, campaign.CreatedAt, campaign.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert campaign", zap.String("campaignID", campaign.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (r *pgCampaignRepository) FindActiveEndingAt(ctx context.Context, querier DBTX, sessionID uuid.UUID, turn int) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := pgxscan.Select(ctx, querier, &campaigns, findActiveCampaignsEndingAtQuery, sessionID, turn)
	if err != nil {
		r.logger.Error("Failed to query campaigns ending at turn",
			zap.String("sessionID", sessionID.String()),
			zap.Int("turn", turn),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *pgCampaignRepository) MarkCompleted(ctx context.Context, querier DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, markCampaignCompletedQuery, id, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to mark campaign completed", zap.String("campaignID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to mark campaign completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCampaignAlreadyComplete
	}
	return nil
}
