package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository/mocks"
)

func newTestPolicyService(policyRepo *mocks.PolicyRepository) PolicyService {
	return NewPolicyService(&mocks.FakeTxRunner{}, policyRepo, zap.NewNop())
}

func proposedPolicy(sessionID uuid.UUID, category string) *models.Policy {
	return &models.Policy{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Title:      "Tariff reform",
		Category:   category,
		Status:     models.PolicyStatusProposed,
		VotePassed: true,
	}
}

func TestProposePolicy_Validation(t *testing.T) {
	svc := newTestPolicyService(new(mocks.PolicyRepository))
	err := svc.ProposePolicy(context.Background(), &models.Policy{Title: "no category"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestMarkVotePassed(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	t.Run("marks proposed policy", func(t *testing.T) {
		policy := proposedPolicy(uuid.New(), "tax_income")
		policy.VotePassed = false
		policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()
		policyRepo.On("Save", mock.Anything, mock.Anything, policy).Return(nil).Once()

		require.NoError(t, svc.MarkVotePassed(context.Background(), policy.ID))
		assert.True(t, policy.VotePassed)
	})

	t.Run("resolved policy is rejected", func(t *testing.T) {
		policy := proposedPolicy(uuid.New(), "tax_income")
		policy.Status = models.PolicyStatusEnacted
		policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()

		err := svc.MarkVotePassed(context.Background(), policy.ID)
		assert.ErrorIs(t, err, models.ErrPolicyAlreadyResolved)
	})
}

func TestEnactPolicy_Guards(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	t.Run("already resolved", func(t *testing.T) {
		policy := proposedPolicy(uuid.New(), "tax_income")
		policy.Status = models.PolicyStatusSuperseded
		policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()

		_, err := svc.EnactPolicy(context.Background(), policy.ID, 5)
		assert.ErrorIs(t, err, models.ErrPolicyAlreadyResolved)
	})

	t.Run("vote not passed", func(t *testing.T) {
		policy := proposedPolicy(uuid.New(), "tax_income")
		policy.VotePassed = false
		policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()

		_, err := svc.EnactPolicy(context.Background(), policy.ID, 5)
		assert.ErrorIs(t, err, ErrNoVotePassed)
	})
}

func TestEnactPolicy_ExclusiveSupersedesIncumbent(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	sessionID := uuid.New()
	newPolicy := proposedPolicy(sessionID, "tax_income")

	enactedTurn := 2
	incumbent := &models.Policy{
		ID:              uuid.New(),
		SessionID:       sessionID,
		Category:        "tax_income",
		Status:          models.PolicyStatusEnacted,
		EnactedTurn:     &enactedTurn,
		EconomicImpact:  4,
		StabilityImpact: -1,
	}

	policyRepo.On("GetByID", mock.Anything, mock.Anything, newPolicy.ID).Return(newPolicy, nil).Once()
	policyRepo.On("FindBySessionCategoryStatus", mock.Anything, mock.Anything, sessionID, "tax_income", models.PolicyStatusEnacted).
		Return([]*models.Policy{incumbent}, nil).Once()
	policyRepo.On("Save", mock.Anything, mock.Anything, incumbent).Return(nil).Once()
	policyRepo.On("Save", mock.Anything, mock.Anything, newPolicy).Return(nil).Once()

	enacted, err := svc.EnactPolicy(context.Background(), newPolicy.ID, 6)
	require.NoError(t, err)

	assert.Equal(t, models.PolicyStatusEnacted, enacted.Status)
	require.NotNil(t, enacted.EnactedTurn)
	assert.Equal(t, 6, *enacted.EnactedTurn)
	assert.Equal(t, []uuid.UUID{incumbent.ID}, enacted.Supersedes)

	// Вытесненный: эффекты ушли в тень, активные обнулены, связь проставлена
	assert.Equal(t, models.PolicyStatusSuperseded, incumbent.Status)
	assert.Equal(t, 0.0, incumbent.EconomicImpact)
	assert.Equal(t, 0.0, incumbent.StabilityImpact)
	require.NotNil(t, incumbent.SupersededEconomicImpact)
	assert.Equal(t, 4.0, *incumbent.SupersededEconomicImpact)
	require.NotNil(t, incumbent.SupersededStabilityImpact)
	assert.Equal(t, -1.0, *incumbent.SupersededStabilityImpact)
	require.NotNil(t, incumbent.SupersededBy)
	assert.Equal(t, newPolicy.ID, *incumbent.SupersededBy)
	policyRepo.AssertExpectations(t)
}

func TestEnactPolicy_StackingCategorySkipsLookup(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	policy := proposedPolicy(uuid.New(), "public_works")
	policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()
	policyRepo.On("Save", mock.Anything, mock.Anything, policy).Return(nil).Once()

	_, err := svc.EnactPolicy(context.Background(), policy.ID, 3)
	require.NoError(t, err)
	policyRepo.AssertNotCalled(t, "FindBySessionCategoryStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSupersede_DelayedEffectProration(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	sessionID := uuid.New()
	makeIncumbent := func(enactedTurn, applyTurn int, magnitude float64) *models.Policy {
		return &models.Policy{
			ID:            uuid.New(),
			SessionID:     sessionID,
			Category:      "tax_income",
			Status:        models.PolicyStatusEnacted,
			EnactedTurn:   &enactedTurn,
			DelayedEffect: &models.DelayedEffect{Kind: "economic", ApplyTurn: applyTurn, Magnitude: magnitude},
		}
	}

	enactAgainst := func(t *testing.T, incumbent *models.Policy, turn int) {
		newPolicy := proposedPolicy(sessionID, "tax_income")
		policyRepo.On("GetByID", mock.Anything, mock.Anything, newPolicy.ID).Return(newPolicy, nil).Once()
		policyRepo.On("FindBySessionCategoryStatus", mock.Anything, mock.Anything, sessionID, "tax_income", models.PolicyStatusEnacted).
			Return([]*models.Policy{incumbent}, nil).Once()
		policyRepo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()
		_, err := svc.EnactPolicy(context.Background(), newPolicy.ID, turn)
		require.NoError(t, err)
	}

	t.Run("past cutoff the effect survives scaled", func(t *testing.T) {
		// Принята на 0, применение на 10, вытеснение на 7: завершенность 0.7
		incumbent := makeIncumbent(0, 10, 8)
		enactAgainst(t, incumbent, 7)

		require.NotNil(t, incumbent.DelayedEffect)
		assert.InDelta(t, 8*0.7, incumbent.DelayedEffect.Magnitude, 1e-9)
		assert.Nil(t, incumbent.CancelledDelayedEffect)
	})

	t.Run("before cutoff the effect is cancelled", func(t *testing.T) {
		// Вытеснение на 3: завершенность 0.3 < 0.5
		incumbent := makeIncumbent(0, 10, 8)
		enactAgainst(t, incumbent, 3)

		assert.Nil(t, incumbent.DelayedEffect)
		require.NotNil(t, incumbent.CancelledDelayedEffect)
		assert.Equal(t, 8.0, incumbent.CancelledDelayedEffect.Magnitude)
	})
}

func TestDeleteByEvent(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	t.Run("requires a reason", func(t *testing.T) {
		err := svc.DeleteByEvent(context.Background(), uuid.New(), "", 5)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("only enacted policies can be removed", func(t *testing.T) {
		policy := proposedPolicy(uuid.New(), "tax_income")
		policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()

		err := svc.DeleteByEvent(context.Background(), policy.ID, "great war", 5)
		assert.ErrorIs(t, err, models.ErrPolicyNotEnacted)
	})

	t.Run("moves effects to shadow and records the reason", func(t *testing.T) {
		enactedTurn := 1
		policy := &models.Policy{
			ID:             uuid.New(),
			SessionID:      uuid.New(),
			Category:       "tax_income",
			Status:         models.PolicyStatusEnacted,
			EnactedTurn:    &enactedTurn,
			EconomicImpact: 6,
		}
		policyRepo.On("GetByID", mock.Anything, mock.Anything, policy.ID).Return(policy, nil).Once()
		policyRepo.On("Save", mock.Anything, mock.Anything, policy).Return(nil).Once()

		require.NoError(t, svc.DeleteByEvent(context.Background(), policy.ID, "great war", 5))
		assert.Equal(t, models.PolicyStatusSuperseded, policy.Status)
		assert.Equal(t, 0.0, policy.EconomicImpact)
		require.NotNil(t, policy.SupersededEconomicImpact)
		assert.Equal(t, 6.0, *policy.SupersededEconomicImpact)
		require.NotNil(t, policy.DeletedByEvent)
		assert.Equal(t, "great war", *policy.DeletedByEvent)
	})
}

func TestApplyDueDelayedEffects(t *testing.T) {
	policyRepo := new(mocks.PolicyRepository)
	svc := newTestPolicyService(policyRepo)

	sessionID := uuid.New()
	enactedTurn := 2

	active := &models.Policy{
		ID:            uuid.New(),
		SessionID:     sessionID,
		Status:        models.PolicyStatusEnacted,
		EnactedTurn:   &enactedTurn,
		DelayedEffect: &models.DelayedEffect{Kind: "stability", ApplyTurn: 5, Magnitude: 3},
	}
	shadowEcon := 2.0
	superseded := &models.Policy{
		ID:                       uuid.New(),
		SessionID:                sessionID,
		Status:                   models.PolicyStatusSuperseded,
		EnactedTurn:              &enactedTurn,
		SupersededEconomicImpact: &shadowEcon,
		DelayedEffect:            &models.DelayedEffect{Kind: "economic", ApplyTurn: 5, Magnitude: 4},
	}

	policyRepo.On("ListDelayedEffectsDue", mock.Anything, mock.Anything, sessionID, 5).
		Return([]*models.Policy{active, superseded}, nil).Once()
	policyRepo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	applied, err := svc.ApplyDueDelayedEffects(context.Background(), sessionID, 5)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	// Действующая: эффект влит в активный показатель и потреблен
	assert.Equal(t, 3.0, active.StabilityImpact)
	assert.Nil(t, active.DelayedEffect)

	// Вытесненная: активные поля остаются нулевыми, прирост уходит в тень
	assert.Equal(t, 0.0, superseded.EconomicImpact)
	require.NotNil(t, superseded.SupersededEconomicImpact)
	assert.Equal(t, 6.0, *superseded.SupersededEconomicImpact)
	assert.Nil(t, superseded.DelayedEffect)
	policyRepo.AssertExpectations(t)
}
