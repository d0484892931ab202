package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
)

// Mock CohortRepository
type CohortRepository struct {
	mock.Mock
}

func (m *CohortRepository) Create(ctx context.Context, querier repository.DBTX, cohort *models.Cohort) error {
	args := m.Called(ctx, querier, cohort)
	return args.Error(0)
}
func (m *CohortRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Cohort, error) {
	args := m.Called(ctx, querier, id)
	cohort, _ := args.Get(0).(*models.Cohort)
	return cohort, args.Error(1)
}
func (m *CohortRepository) ListBySession(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID) ([]*models.Cohort, error) {
	args := m.Called(ctx, querier, sessionID)
	cohorts, _ := args.Get(0).([]*models.Cohort)
	return cohorts, args.Error(1)
}
func (m *CohortRepository) ListByProvince(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, provinceID string) ([]*models.Cohort, error) {
	args := m.Called(ctx, querier, sessionID, provinceID)
	cohorts, _ := args.Get(0).([]*models.Cohort)
	return cohorts, args.Error(1)
}
func (m *CohortRepository) ListVotingEligible(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID) ([]*models.Cohort, error) {
	args := m.Called(ctx, querier, sessionID)
	cohorts, _ := args.Get(0).([]*models.Cohort)
	return cohorts, args.Error(1)
}
func (m *CohortRepository) UpdatePopulation(ctx context.Context, querier repository.DBTX, id uuid.UUID, population int64) error {
	args := m.Called(ctx, querier, id, population)
	return args.Error(0)
}

// Mock ReputationRepository
type ReputationRepository struct {
	mock.Mock
}

func (m *ReputationRepository) GetForUpdate(ctx context.Context, querier repository.DBTX, sessionID, playerID, cohortID uuid.UUID) (*models.ReputationRecord, error) {
	args := m.Called(ctx, querier, sessionID, playerID, cohortID)
	rec, _ := args.Get(0).(*models.ReputationRecord)
	return rec, args.Error(1)
}
func (m *ReputationRepository) Upsert(ctx context.Context, querier repository.DBTX, rec *models.ReputationRecord) error {
	args := m.Called(ctx, querier, rec)
	return args.Error(0)
}
func (m *ReputationRepository) ListBySession(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID) ([]*models.ReputationRecord, error) {
	args := m.Called(ctx, querier, sessionID)
	recs, _ := args.Get(0).([]*models.ReputationRecord)
	return recs, args.Error(1)
}
func (m *ReputationRepository) ListByPlayer(ctx context.Context, querier repository.DBTX, sessionID, playerID uuid.UUID) ([]*models.ReputationRecord, error) {
	args := m.Called(ctx, querier, sessionID, playerID)
	recs, _ := args.Get(0).([]*models.ReputationRecord)
	return recs, args.Error(1)
}

// Mock PolicyRepository
type PolicyRepository struct {
	mock.Mock
}

func (m *PolicyRepository) Create(ctx context.Context, querier repository.DBTX, policy *models.Policy) error {
	args := m.Called(ctx, querier, policy)
	return args.Error(0)
}
func (m *PolicyRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Policy, error) {
	args := m.Called(ctx, querier, id)
	policy, _ := args.Get(0).(*models.Policy)
	return policy, args.Error(1)
}
func (m *PolicyRepository) FindBySessionCategoryStatus(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, category string, status models.PolicyStatus) ([]*models.Policy, error) {
	args := m.Called(ctx, querier, sessionID, category, status)
	policies, _ := args.Get(0).([]*models.Policy)
	return policies, args.Error(1)
}
func (m *PolicyRepository) ListBySessionStatus(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, status models.PolicyStatus) ([]*models.Policy, error) {
	args := m.Called(ctx, querier, sessionID, status)
	policies, _ := args.Get(0).([]*models.Policy)
	return policies, args.Error(1)
}
func (m *PolicyRepository) ListDelayedEffectsDue(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, turn int) ([]*models.Policy, error) {
	args := m.Called(ctx, querier, sessionID, turn)
	policies, _ := args.Get(0).([]*models.Policy)
	return policies, args.Error(1)
}
func (m *PolicyRepository) Save(ctx context.Context, querier repository.DBTX, policy *models.Policy) error {
	args := m.Called(ctx, querier, policy)
	return args.Error(0)
}

// Mock CampaignRepository
type CampaignRepository struct {
	mock.Mock
}

func (m *CampaignRepository) Create(ctx context.Context, querier repository.DBTX, campaign *models.Campaign) error {
	args := m.Called(ctx, querier, campaign)
	return args.Error(0)
}
func (m *CampaignRepository) FindActiveEndingAt(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, turn int) ([]*models.Campaign, error) {
	args := m.Called(ctx, querier, sessionID, turn)
	campaigns, _ := args.Get(0).([]*models.Campaign)
	return campaigns, args.Error(1)
}
func (m *CampaignRepository) MarkCompleted(ctx context.Context, querier repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

// Mock SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, querier repository.DBTX, session *models.GameSession) error {
	args := m.Called(ctx, querier, session)
	return args.Error(0)
}
func (m *SessionRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, querier, id)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}
func (m *SessionRepository) ListActive(ctx context.Context, querier repository.DBTX) ([]*models.GameSession, error) {
	args := m.Called(ctx, querier)
	sessions, _ := args.Get(0).([]*models.GameSession)
	return sessions, args.Error(1)
}
func (m *SessionRepository) SetStatus(ctx context.Context, querier repository.DBTX, id uuid.UUID, from, to models.SessionStatus) error {
	args := m.Called(ctx, querier, id, from, to)
	return args.Error(0)
}
func (m *SessionRepository) AdvanceTurn(ctx context.Context, querier repository.DBTX, session *models.GameSession) error {
	args := m.Called(ctx, querier, session)
	return args.Error(0)
}

// Mock ElectionRepository
type ElectionRepository struct {
	mock.Mock
}

func (m *ElectionRepository) SaveResult(ctx context.Context, querier repository.DBTX, result *models.ElectionResult) error {
	args := m.Called(ctx, querier, result)
	return args.Error(0)
}
func (m *ElectionRepository) ListBySessionTurn(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, turn int) ([]*models.ElectionResult, error) {
	args := m.Called(ctx, querier, sessionID, turn)
	results, _ := args.Get(0).([]*models.ElectionResult)
	return results, args.Error(1)
}
func (m *ElectionRepository) RegisterCandidate(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID, candidate *models.Candidate) error {
	args := m.Called(ctx, querier, sessionID, candidate)
	return args.Error(0)
}
func (m *ElectionRepository) ListCandidates(ctx context.Context, querier repository.DBTX, sessionID uuid.UUID) ([]models.Candidate, error) {
	args := m.Called(ctx, querier, sessionID)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates, args.Error(1)
}

// Mock ProvinceCohortCache
type ProvinceCohortCache struct {
	mock.Mock
}

func (m *ProvinceCohortCache) GetCohortIDs(ctx context.Context, sessionID uuid.UUID, provinceID string) ([]uuid.UUID, error) {
	args := m.Called(ctx, sessionID, provinceID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}
func (m *ProvinceCohortCache) SetCohortIDs(ctx context.Context, sessionID uuid.UUID, provinceID string, ids []uuid.UUID) error {
	args := m.Called(ctx, sessionID, provinceID, ids)
	return args.Error(0)
}
func (m *ProvinceCohortCache) Invalidate(ctx context.Context, sessionID uuid.UUID, provinceID string) error {
	args := m.Called(ctx, sessionID, provinceID)
	return args.Error(0)
}

// FakeTxRunner прогоняет функцию транзакции напрямую, без настоящей БД.
// Querier внутри — nil: юнит-тесты сервисов мокают репозитории, а не соединение.
type FakeTxRunner struct{}

func (f *FakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	return fn(ctx, nil)
}
