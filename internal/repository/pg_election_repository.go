package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

const (
	insertElectionResultQuery = `
        INSERT INTO election_results
            (id, session_id, province_id, turn, tally, total_votes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	listElectionResultsBySessionTurnQuery = `
        SELECT id, session_id, province_id, turn, tally, total_votes, created_at
        FROM election_results
        WHERE session_id = $1 AND turn = $2
        ORDER BY province_id
    `
	upsertElectionCandidateQuery = `
        INSERT INTO election_candidates
            (session_id, player_id, name, cube_economic, cube_authority, cube_social, funding, endorsements, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (session_id, player_id) DO UPDATE SET
            name = EXCLUDED.name,
            cube_economic = EXCLUDED.cube_economic,
            cube_authority = EXCLUDED.cube_authority,
            cube_social = EXCLUDED.cube_social,
            funding = EXCLUDED.funding,
            endorsements = EXCLUDED.endorsements,
            updated_at = EXCLUDED.updated_at
    `
	listElectionCandidatesQuery = `
        SELECT player_id, name, cube_economic, cube_authority, cube_social, funding, endorsements
        FROM election_candidates
        WHERE session_id = $1
        ORDER BY player_id
    `
)

// Compile-time check to ensure pgElectionRepository implements the interface
var _ ElectionRepository = (*pgElectionRepository)(nil)

type pgElectionRepository struct {
	logger *zap.Logger
}

// NewPgElectionRepository creates a new repository instance.
func NewPgElectionRepository(logger *zap.Logger) ElectionRepository {
	return &pgElectionRepository{
		logger: logger.Named("PgElectionRepo"),
	}
}

func (r *pgElectionRepository) SaveResult(ctx context.Context, querier DBTX, result *models.ElectionResult) error {
	tallyJSON, err := json.Marshal(result.Tally)
	if err != nil {
		return fmt.Errorf("failed to marshal election tally: %w", err)
	}
	result.CreatedAt = time.Now().UTC()
	_, err = querier.Exec(ctx, insertElectionResultQuery,
		result.ID, result.SessionID, result.ProvinceID, result.Turn,
		tallyJSON, result.TotalVotes, result.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert election result",
			zap.String("sessionID", result.SessionID.String()),
			zap.String("provinceID", result.ProvinceID),
			zap.Error(err))
		return fmt.Errorf("failed to insert election result: %w", err)
	}
	return nil
}

func (r *pgElectionRepository) ListBySessionTurn(ctx context.Context, querier DBTX, sessionID uuid.UUID, turn int) ([]*models.ElectionResult, error) {
	rows, err := querier.Query(ctx, listElectionResultsBySessionTurnQuery, sessionID, turn)
	if err != nil {
		r.logger.Error("Failed to query election results", zap.Error(err))
		return nil, fmt.Errorf("failed to query election results: %w", err)
	}
	defer rows.Close()

	var results []*models.ElectionResult
	for rows.Next() {
		var res models.ElectionResult
		var tallyJSON []byte
		if err := rows.Scan(&res.ID, &res.SessionID, &res.ProvinceID, &res.Turn, &tallyJSON, &res.TotalVotes, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan election result row: %w", err)
		}
		if len(tallyJSON) > 0 {
			if err := json.Unmarshal(tallyJSON, &res.Tally); err != nil {
				return nil, fmt.Errorf("failed to unmarshal election tally: %w", err)
			}
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("election rows iteration error: %w", err)
	}
	return results, nil
}

func (r *pgElectionRepository) RegisterCandidate(ctx context.Context, querier DBTX, sessionID uuid.UUID, candidate *models.Candidate) error {
	_, err := querier.Exec(ctx, upsertElectionCandidateQuery,
		sessionID, candidate.PlayerID, candidate.Name,
		candidate.Position.Economic, candidate.Position.Authority, candidate.Position.Social,
		candidate.Funding, candidate.Endorsements, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert election candidate",
			zap.String("sessionID", sessionID.String()),
			zap.String("playerID", candidate.PlayerID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to upsert election candidate: %w", err)
	}
	return nil
}

func (r *pgElectionRepository) ListCandidates(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]models.Candidate, error) {
	rows, err := querier.Query(ctx, listElectionCandidatesQuery, sessionID)
	if err != nil {
		r.logger.Error("Failed to query election candidates", zap.Error(err))
		return nil, fmt.Errorf("failed to query election candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.PlayerID, &c.Name, &c.Position.Economic, &c.Position.Authority, &c.Position.Social, &c.Funding, &c.Endorsements); err != nil {
			return nil, fmt.Errorf("failed to scan election candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("election candidate rows iteration error: %w", err)
	}
	return candidates, nil
}
