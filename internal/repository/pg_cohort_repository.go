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
	cohortFields = `id, session_id, social_class, occupation, gender, property_status,
        ethnicity, religion, is_indigenous, is_mixed_heritage,
        province_id, settlement_type, population, can_vote, default_position,
        created_at, updated_at`

	insertCohortQuery = `
        INSERT INTO cohorts
            (id, session_id, social_class, occupation, gender, property_status,
             ethnicity, religion, is_indigenous, is_mixed_heritage,
             province_id, settlement_type, population, can_vote, default_position,
             created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `
	getCohortByIDQuery = `
        SELECT ` + cohortFields + `
        FROM cohorts
        WHERE id = $1
    `
	listCohortsBySessionQuery = `
        SELECT ` + cohortFields + `
        FROM cohorts
        WHERE session_id = $1
        ORDER BY province_id, population DESC
    `
	listCohortsByProvinceQuery = `
        SELECT ` + cohortFields + `
        FROM cohorts
        WHERE session_id = $1 AND province_id = $2 AND population > 0
        ORDER BY population DESC
    `
	listVotingEligibleCohortsQuery = `
        SELECT ` + cohortFields + `
        FROM cohorts
        WHERE session_id = $1 AND can_vote = TRUE AND population > 0
        ORDER BY population DESC
    `
	// can_vote намеренно не обновляется: право голоса неизменно после создания.
	updateCohortPopulationQuery = `
        UPDATE cohorts SET population = $2, updated_at = $3 WHERE id = $1
    `
)

// Compile-time check to ensure pgCohortRepository implements the interface
var _ CohortRepository = (*pgCohortRepository)(nil)

type pgCohortRepository struct {
	logger *zap.Logger
}

// NewPgCohortRepository creates a new repository instance.
func NewPgCohortRepository(logger *zap.Logger) CohortRepository {
	return &pgCohortRepository{
		logger: logger.Named("PgCohortRepo"),
	}
}

func (r *pgCohortRepository) Create(ctx context.Context, querier DBTX, cohort *models.Cohort) error {
	if cohort.Population < 0 {
		return fmt.Errorf("%w: cohort population must be >= 0", models.ErrInvalidInput)
	}
	positionJSON, err := json.Marshal(cohort.DefaultPosition)
	if err != nil {
		return fmt.Errorf("failed to marshal cohort position: %w", err)
	}
	now := time.Now().UTC()
	cohort.CreatedAt = now
	cohort.UpdatedAt = now

	_, err = querier.Exec(ctx, insertCohortQuery,
		cohort.ID, cohort.SessionID,
		cohort.SocialClass, cohort.Occupation, cohort.Gender, cohort.PropertyStatus,
		cohort.Ethnicity, cohort.Religion, cohort.IsIndigenous, cohort.IsMixedHeritage,
		cohort.ProvinceID, cohort.SettlementType, cohort.Population, cohort.CanVote,
		positionJSON, cohort.CreatedAt, cohort.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert cohort", zap.String("cohortID", cohort.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert cohort: %w", err)
	}
	return nil
}

func (r *pgCohortRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Cohort, error) {
	row := querier.QueryRow(ctx, getCohortByIDQuery, id)
	cohort, err := scanCohort(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCohortNotFound
		}
		r.logger.Error("Failed to get cohort by ID", zap.String("cohortID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get cohort: %w", err)
	}
	return cohort, nil
}

func (r *pgCohortRepository) ListBySession(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]*models.Cohort, error) {
	return r.listCohorts(ctx, querier, listCohortsBySessionQuery, sessionID)
}

func (r *pgCohortRepository) ListByProvince(ctx context.Context, querier DBTX, sessionID uuid.UUID, provinceID string) ([]*models.Cohort, error) {
	return r.listCohorts(ctx, querier, listCohortsByProvinceQuery, sessionID, provinceID)
}

func (r *pgCohortRepository) ListVotingEligible(ctx context.Context, querier DBTX, sessionID uuid.UUID) ([]*models.Cohort, error) {
	return r.listCohorts(ctx, querier, listVotingEligibleCohortsQuery, sessionID)
}

func (r *pgCohortRepository) UpdatePopulation(ctx context.Context, querier DBTX, id uuid.UUID, population int64) error {
	if population < 0 {
		return fmt.Errorf("%w: cohort population must be >= 0", models.ErrInvalidInput)
	}
	tag, err := querier.Exec(ctx, updateCohortPopulationQuery, id, population, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to update cohort population", zap.String("cohortID", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update cohort population: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCohortNotFound
	}
	return nil
}

func (r *pgCohortRepository) listCohorts(ctx context.Context, querier DBTX, query string, args ...any) ([]*models.Cohort, error) {
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query cohorts", zap.Error(err))
		return nil, fmt.Errorf("failed to query cohorts: %w", err)
	}
	defer rows.Close()

	var cohorts []*models.Cohort
	for rows.Next() {
		cohort, err := scanCohort(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cohort row: %w", err)
		}
		cohorts = append(cohorts, cohort)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cohort rows iteration error: %w", err)
	}
	return cohorts, nil
}

// scanCohort разбирает одну строку cohorts; default_position хранится как JSONB.
func scanCohort(row pgx.Row) (*models.Cohort, error) {
	var cohort models.Cohort
	var positionJSON []byte
	err := row.Scan(
		&cohort.ID, &cohort.SessionID,
		&cohort.SocialClass, &cohort.Occupation, &cohort.Gender, &cohort.PropertyStatus,
		&cohort.Ethnicity, &cohort.Religion, &cohort.IsIndigenous, &cohort.IsMixedHeritage,
		&cohort.ProvinceID, &cohort.SettlementType, &cohort.Population, &cohort.CanVote,
		&positionJSON, &cohort.CreatedAt, &cohort.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(positionJSON, &cohort.DefaultPosition); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cohort position: %w", err)
	}
	// Карты позиции нормализуются при чтении на случай ручных правок данных.
	// Для полных карт в границах обе нормализации идемпотентны.
	cohort.DefaultPosition.Issues = models.NormalizeIssuePositions(cohort.DefaultPosition.Issues)
	cohort.DefaultPosition.Salience = models.NormalizeSalience(cohort.DefaultPosition.Salience)
	return &cohort, nil
}
