package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

const (
	reputationFields = `id, session_id, player_id, cohort_id, approval, history, updated_turn, updated_at`

	// FOR UPDATE: конкурентные дельты к одной записи выстраиваются
	// последовательно на уровне строки, блайнд-записи исключены.
	getReputationForUpdateQuery = `
        SELECT ` + reputationFields + `
        FROM reputation_records
        WHERE session_id = $1 AND player_id = $2 AND cohort_id = $3
        FOR UPDATE
    `
	upsertReputationQuery = `
        INSERT INTO reputation_records
            (id, session_id, player_id, cohort_id, approval, history, updated_turn, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (session_id, player_id, cohort_id) DO UPDATE SET
            approval = EXCLUDED.approval,
            history = EXCLUDED.history,
            updated_turn = EXCLUDED.updated_turn,
            updated_at = EXCLUDED.updated_at
    `
	listReputationBySessionQuery = `
        SELECT ` + reputationFields + `
        FROM reputation_records
        WHERE session_id = $1
    `
	listReputationByPlayerQuery = `
        SELECT ` + reputationFields + `
        FROM reputation_records
        WHERE session_id = $1 AND player_id = $2
    `
)

// Compile-time check to ensure pgReputationRepository implements the interface
var _ ReputationRepository = (*pgReputationRepository)(nil)

type pgReputationRepository struct {
	logger *zap.Logger
}

// NewPgReputationRepository creates a new repository instance.
func NewPgReputationRepository(logger *zap.Logger) ReputationRepository {
	return &pgReputationRepository{
		logger: logger.Named("PgReputationRepo"),
	}
}

func (r *pgReputationRepository) GetForUpdate(ctx context.Context, querier DBTX, sessionID, playerID, cohortID uuid.UUID) (*models.ReputationRecord, error) {
	row := querier.QueryRow(ctx, getReputationForUpdateQuery, sessionID, playerID, cohortID)
	rec, err := scanReputationRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get reputation record for update",
			zap.String("playerID", playerID.String()),
			zap.String("cohortID", cohortID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get reputation record: %w", err)
	}
	return rec, nil
}

func (r *pgReputationRepository) Upsert(ctx context.Context, querier DBTX, rec *models.ReputationRecord) error {
	// История никогда не пишется сверх лимита.
	rec.TrimHistory()
	historyJSON, err := json.Marshal(rec.History)
	if err != nil {
		return fmt.Errorf("failed to marshal reputation history: %w", err)
	}
	rec.UpdatedAt = time.Now().UTC()

	_, err = querier.Exec(ctx, upsertReputationQuery,
		rec.ID, rec.SessionID, rec.PlayerID, rec.CohortID,
		rec.Approval, historyJSON, rec.UpdatedTurn, rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert reputation record",
			zap.String("playerID", rec.PlayerID.String()),
			zap.String("cohortID", rec.CohortID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to upsert reputation record: %w", err)
	}
	return nil
}

func (r *pgReputationRepository) ListBySession(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]*models.ReputationRecord, error) {
	return r.listRecords(ctx, querier, listReputationBySessionQuery, sessionID)
}

func (r *pgReputationRepository) ListByPlayer(ctx context.Context, querier DBTX, sessionID, playerID uuid.UUID) ([]*models.ReputationRecord, error) {
	return r.listRecords(ctx, querier, listReputationByPlayerQuery, sessionID, playerID)
}

func (r *pgReputationRepository) listRecords(ctx context.Context, querier DBTX, query string, args ...any) ([]*models.ReputationRecord, error) {
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query reputation records", zap.Error(err))
		return nil, fmt.Errorf("failed to query reputation records: %w", err)
	}
	defer rows.Close()

	var records []*models.ReputationRecord
	for rows.Next() {
		rec, err := scanReputationRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reputation row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reputation rows iteration error: %w", err)
	}
	return records, nil
}

func scanReputationRecord(row pgx.Row) (*models.ReputationRecord, error) {
	var rec models.ReputationRecord
	var historyJSON []byte
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.PlayerID, &rec.CohortID,
		&rec.Approval, &historyJSON, &rec.UpdatedTurn, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &rec.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reputation history: %w", err)
		}
	}
	return &rec, nil
}
