package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

const (
	sessionFields = `id, status, current_turn, game_date, turn_started_at, turn_ends_at, created_at, updated_at`

	insertSessionQuery = `
        INSERT INTO game_sessions
            (id, status, current_turn, game_date, turn_started_at, turn_ends_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	getSessionByIDQuery = `
        SELECT ` + sessionFields + `
        FROM game_sessions
        WHERE id = $1
    `
	listActiveSessionsQuery = `
        SELECT ` + sessionFields + `
        FROM game_sessions
        WHERE status = 'active'
        ORDER BY created_at
    `
	// CAS по статусу: переход выполняется только из ожидаемого состояния.
	setSessionStatusQuery = `
        UPDATE game_sessions SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2
    `
	advanceSessionTurnQuery = `
        UPDATE game_sessions SET
            current_turn = $2,
            game_date = $3,
            turn_started_at = $4,
            turn_ends_at = $5,
            updated_at = $6
        WHERE id = $1
    `
)

// Compile-time check to ensure pgSessionRepository implements the interface
var _ SessionRepository = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	logger *zap.Logger
}

// NewPgSessionRepository creates a new repository instance.
func NewPgSessionRepository(logger *zap.Logger) SessionRepository {
	return &pgSessionRepository{
		logger: logger.Named("PgSessionRepo"),
	}
}

func (r *pgSessionRepository) Create(ctx context.Context, querier DBTX, session *models.GameSession) error {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	_, err := querier.Exec(ctx, insertSessionQuery,
		session.ID, session.Status, session.CurrentTurn, session.GameDate,
		session.TurnStartedAt, session.TurnEndsAt, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert game session", zap.String("sessionID", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert game session: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.GameSession, error) {
	var session models.GameSession
	err := pgxscan.Get(ctx, querier, &session, getSessionByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		r.logger.Error("Failed to get game session", zap.String("sessionID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	return &session, nil
}

func (r *pgSessionRepository) ListActive(ctx context.Context, querier DBTX) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	err := pgxscan.Select(ctx, querier, &sessions, listActiveSessionsQuery)
	if err != nil {
		r.logger.Error("Failed to list active sessions", zap.Error(err))
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return sessions, nil
}

func (r *pgSessionRepository) SetStatus(ctx context.Context, querier DBTX, id uuid.UUID, from, to models.SessionStatus) error {
	tag, err := querier.Exec(ctx, setSessionStatusQuery, id, from, to, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to set session status",
			zap.String("sessionID", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return fmt.Errorf("failed to set session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if to == models.SessionStatusProcessing {
			return models.ErrTurnInProgress
		}
		return models.ErrSessionNotActive
	}
	return nil
}

func (r *pgSessionRepository) AdvanceTurn(ctx context.Context, querier DBTX, session *models.GameSession) error {
	session.UpdatedAt = time.Now().UTC()
	tag, err := querier.Exec(ctx, advanceSessionTurnQuery,
		session.ID, session.CurrentTurn, session.GameDate,
		session.TurnStartedAt, session.TurnEndsAt, session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to advance session turn", zap.String("sessionID", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to advance session turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}
