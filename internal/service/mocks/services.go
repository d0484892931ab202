package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/service"
)

// Mock ReputationService
type ReputationService struct {
	mock.Mock
}

func (m *ReputationService) ApplyReputationChange(ctx context.Context, sessionID, playerID, cohortID uuid.UUID, delta float64, source, sourceID string, turn int) (*models.ReputationRecord, error) {
	args := m.Called(ctx, sessionID, playerID, cohortID, delta, source, sourceID, turn)
	rec, _ := args.Get(0).(*models.ReputationRecord)
	return rec, args.Error(1)
}
func (m *ReputationService) ApplyPolicyImpact(ctx context.Context, policy *models.Policy, playerID uuid.UUID, role service.Role, turn int) error {
	args := m.Called(ctx, policy, playerID, role, turn)
	return args.Error(0)
}
func (m *ReputationService) ApplySessionDecay(ctx context.Context, sessionID uuid.UUID, turn int) (int, error) {
	args := m.Called(ctx, sessionID, turn)
	return args.Int(0), args.Error(1)
}
func (m *ReputationService) CompactHistories(ctx context.Context, sessionID uuid.UUID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}
func (m *ReputationService) ApplyEndorsement(ctx context.Context, sessionID, endorserID, candidateID uuid.UUID, turn int) (int, error) {
	args := m.Called(ctx, sessionID, endorserID, candidateID, turn)
	return args.Int(0), args.Error(1)
}
func (m *ReputationService) PreviewApproval(ctx context.Context, sessionID, playerID uuid.UUID) (float64, error) {
	args := m.Called(ctx, sessionID, playerID)
	return args.Get(0).(float64), args.Error(1)
}

// Mock PolicyService
type PolicyService struct {
	mock.Mock
}

func (m *PolicyService) ProposePolicy(ctx context.Context, policy *models.Policy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}
func (m *PolicyService) MarkVotePassed(ctx context.Context, policyID uuid.UUID) error {
	args := m.Called(ctx, policyID)
	return args.Error(0)
}
func (m *PolicyService) EnactPolicy(ctx context.Context, policyID uuid.UUID, turn int) (*models.Policy, error) {
	args := m.Called(ctx, policyID, turn)
	policy, _ := args.Get(0).(*models.Policy)
	return policy, args.Error(1)
}
func (m *PolicyService) EnactPassedProposals(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.Policy, error) {
	args := m.Called(ctx, sessionID, turn)
	policies, _ := args.Get(0).([]*models.Policy)
	return policies, args.Error(1)
}
func (m *PolicyService) DeleteByEvent(ctx context.Context, policyID uuid.UUID, reason string, turn int) error {
	args := m.Called(ctx, policyID, reason, turn)
	return args.Error(0)
}
func (m *PolicyService) ApplyDueDelayedEffects(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.Policy, error) {
	args := m.Called(ctx, sessionID, turn)
	policies, _ := args.Get(0).([]*models.Policy)
	return policies, args.Error(1)
}

// Mock ElectionService
type ElectionService struct {
	mock.Mock
}

func (m *ElectionService) SimulateElection(ctx context.Context, sessionID uuid.UUID, provinceID string, provincePopulation int64, candidates []models.Candidate, turn int) (*models.ElectionResult, error) {
	args := m.Called(ctx, sessionID, provinceID, provincePopulation, candidates, turn)
	result, _ := args.Get(0).(*models.ElectionResult)
	return result, args.Error(1)
}
func (m *ElectionService) RunSessionElections(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.ElectionResult, error) {
	args := m.Called(ctx, sessionID, turn)
	results, _ := args.Get(0).([]*models.ElectionResult)
	return results, args.Error(1)
}

// Mock TurnService
type TurnService struct {
	mock.Mock
}

func (m *TurnService) ProcessTurnEnd(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, sessionID)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}
