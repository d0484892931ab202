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
	policyFields = `id, session_id, proposer_id, category, status, title, vote_passed,
        cube_economic, cube_authority, cube_social, issue_positions,
        economic_impact, stability_impact, delayed_effect,
        superseded_economic_impact, superseded_stability_impact, cancelled_delayed_effect,
        supersedes, superseded_by, deleted_by_event,
        proposed_turn, enacted_turn, created_at, updated_at`

	insertPolicyQuery = `
        INSERT INTO policies
            (id, session_id, proposer_id, category, status, title, vote_passed,
             cube_economic, cube_authority, cube_social, issue_positions,
             economic_impact, stability_impact, delayed_effect,
             superseded_economic_impact, superseded_stability_impact, cancelled_delayed_effect,
             supersedes, superseded_by, deleted_by_event,
             proposed_turn, enacted_turn, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
    `
	getPolicyByIDQuery = `
        SELECT ` + policyFields + `
        FROM policies
        WHERE id = $1
        FOR UPDATE
    `
	findPoliciesBySessionCategoryStatusQuery = `
        SELECT ` + policyFields + `
        FROM policies
        WHERE session_id = $1 AND category = $2 AND status = $3
        FOR UPDATE
    `
	listPoliciesBySessionStatusQuery = `
        SELECT ` + policyFields + `
        FROM policies
        WHERE session_id = $1 AND status = $2
        ORDER BY proposed_turn, created_at
    `
	// Прорейтированные эффекты вытесненных политик тоже должны примениться,
	// поэтому фильтр по статусу исключает только proposed.
	listDelayedEffectsDueQuery = `
        SELECT ` + policyFields + `
        FROM policies
        WHERE session_id = $1 AND status <> 'proposed'
          AND delayed_effect IS NOT NULL
          AND (delayed_effect->>'apply_turn')::int <= $2
        FOR UPDATE
    `
	updatePolicyQuery = `
        UPDATE policies SET
            status = $2,
            vote_passed = $3,
            economic_impact = $4,
            stability_impact = $5,
            delayed_effect = $6,
            superseded_economic_impact = $7,
            superseded_stability_impact = $8,
            cancelled_delayed_effect = $9,
            supersedes = $10,
            superseded_by = $11,
            deleted_by_event = $12,
            enacted_turn = $13,
            updated_at = $14
        WHERE id = $1
    `
)

// Compile-time check to ensure pgPolicyRepository implements the interface
var _ PolicyRepository = (*pgPolicyRepository)(nil)

type pgPolicyRepository struct {
	logger *zap.Logger
}

// NewPgPolicyRepository creates a new repository instance.
func NewPgPolicyRepository(logger *zap.Logger) PolicyRepository {
	return &pgPolicyRepository{
		logger: logger.Named("PgPolicyRepo"),
	}
}

func (r *pgPolicyRepository) Create(ctx context.Context, querier DBTX, policy *models.Policy) error {
	if err := models.ValidateIssueMap(policy.IssuePositions); err != nil {
		return err
	}
	issuesJSON, delayedJSON, cancelledJSON, err := marshalPolicyJSON(policy)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	policy.CreatedAt = now
	policy.UpdatedAt = now

	_, err = querier.Exec(ctx, insertPolicyQuery,
		policy.ID, policy.SessionID, policy.ProposerID,
		policy.Category, policy.Status, policy.Title, policy.VotePassed,
		policy.Cube.Economic, policy.Cube.Authority, policy.Cube.Social, issuesJSON,
		policy.EconomicImpact, policy.StabilityImpact, delayedJSON,
		policy.SupersededEconomicImpact, policy.SupersededStabilityImpact, cancelledJSON,
		uuidSliceToStrings(policy.Supersedes), policy.SupersededBy, policy.DeletedByEvent,
		policy.ProposedTurn, policy.EnactedTurn, policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert policy", zap.String("policyID", policy.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

func (r *pgPolicyRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Policy, error) {
	row := querier.QueryRow(ctx, getPolicyByIDQuery, id)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPolicyNotFound
		}
		r.logger.Error("Failed to get policy by ID", zap.String("policyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return policy, nil
}

func (r *pgPolicyRepository) FindBySessionCategoryStatus(ctx context.Context, querier DBTX, sessionID uuid.UUID, category string, status models.PolicyStatus) ([]*models.Policy, error) {
	return r.listPolicies(ctx, querier, findPoliciesBySessionCategoryStatusQuery, sessionID, category, status)
}

func (r *pgPolicyRepository) ListBySessionStatus(ctx context.Context, querier DBTX, sessionID uuid.UUID, status models.PolicyStatus) ([]*models.Policy, error) {
	return r.listPolicies(ctx, querier, listPoliciesBySessionStatusQuery, sessionID, status)
}

func (r *pgPolicyRepository) ListDelayedEffectsDue(ctx context.Context, querier DBTX, sessionID uuid.UUID, turn int) ([]*models.Policy, error) {
	return r.listPolicies(ctx, querier, listDelayedEffectsDueQuery, sessionID, turn)
}

func (r *pgPolicyRepository) Save(ctx context.Context, querier DBTX, policy *models.Policy) error {
	_, delayedJSON, cancelledJSON, err := marshalPolicyJSON(policy)
	if err != nil {
		return err
	}
	policy.UpdatedAt = time.Now().UTC()

	tag, err := querier.Exec(ctx, updatePolicyQuery,
		policy.ID, policy.Status, policy.VotePassed,
		policy.EconomicImpact, policy.StabilityImpact, delayedJSON,
		policy.SupersededEconomicImpact, policy.SupersededStabilityImpact, cancelledJSON,
		uuidSliceToStrings(policy.Supersedes), policy.SupersededBy, policy.DeletedByEvent,
		policy.EnactedTurn, policy.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update policy", zap.String("policyID", policy.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPolicyNotFound
	}
	return nil
}

func (r *pgPolicyRepository) listPolicies(ctx context.Context, querier DBTX, query string, args ...any) ([]*models.Policy, error) {
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query policies", zap.Error(err))
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("policy rows iteration error: %w", err)
	}
	return policies, nil
}

func marshalPolicyJSON(policy *models.Policy) (issues, delayed, cancelled []byte, err error) {
	issues, err = json.Marshal(policy.IssuePositions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal policy issues: %w", err)
	}
	if policy.DelayedEffect != nil {
		delayed, err = json.Marshal(policy.DelayedEffect)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal delayed effect: %w", err)
		}
	}
	if policy.CancelledDelayedEffect != nil {
		cancelled, err = json.Marshal(policy.CancelledDelayedEffect)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal cancelled delayed effect: %w", err)
		}
	}
	return issues, delayed, cancelled, nil
}

func scanPolicy(row pgx.Row) (*models.Policy, error) {
	var policy models.Policy
	var issuesJSON, delayedJSON, cancelledJSON []byte
	var supersedes []string
	err := row.Scan(
		&policy.ID, &policy.SessionID, &policy.ProposerID,
		&policy.Category, &policy.Status, &policy.Title, &policy.VotePassed,
		&policy.Cube.Economic, &policy.Cube.Authority, &policy.Cube.Social, &issuesJSON,
		&policy.EconomicImpact, &policy.StabilityImpact, &delayedJSON,
		&policy.SupersededEconomicImpact, &policy.SupersededStabilityImpact, &cancelledJSON,
		&supersedes, &policy.SupersededBy, &policy.DeletedByEvent,
		&policy.ProposedTurn, &policy.EnactedTurn, &policy.CreatedAt, &policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(issuesJSON) > 0 {
		if err := json.Unmarshal(issuesJSON, &policy.IssuePositions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy issues: %w", err)
		}
	}
	if len(delayedJSON) > 0 {
		policy.DelayedEffect = &models.DelayedEffect{}
		if err := json.Unmarshal(delayedJSON, policy.DelayedEffect); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delayed effect: %w", err)
		}
	}
	if len(cancelledJSON) > 0 {
		policy.CancelledDelayedEffect = &models.DelayedEffect{}
		if err := json.Unmarshal(cancelledJSON, policy.CancelledDelayedEffect); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cancelled delayed effect: %w", err)
		}
	}
	for _, s := range supersedes {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid supersedes id %q: %w", s, err)
		}
		policy.Supersedes = append(policy.Supersedes, id)
	}
	return &policy, nil
}

func uuidSliceToStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
