package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository/mocks"
)

func TestSeedSession(t *testing.T) {
	newFixture := func() (*mocks.SessionRepository, *mocks.CohortRepository, *mocks.ReputationRepository, SetupService) {
		sessionRepo := new(mocks.SessionRepository)
		cohortRepo := new(mocks.CohortRepository)
		repRepo := new(mocks.ReputationRepository)
		svc := NewSetupService(&mocks.FakeTxRunner{}, sessionRepo, cohortRepo, repRepo, 24*time.Hour, zap.NewNop())
		return sessionRepo, cohortRepo, repRepo, svc
	}

	gameDate := time.Date(1850, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rejects empty demography", func(t *testing.T) {
		_, _, _, svc := newFixture()
		_, err := svc.SeedSession(context.Background(), SeedSessionRequest{GameDate: gameDate})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("rejects negative population", func(t *testing.T) {
		_, _, _, svc := newFixture()
		_, err := svc.SeedSession(context.Background(), SeedSessionRequest{
			GameDate: gameDate,
			Cohorts:  []CohortSeed{{Population: -5}},
		})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("creates session, cohorts and seeded reputation", func(t *testing.T) {
		sessionRepo, cohortRepo, repRepo, svc := newFixture()

		var createdCohorts []*models.Cohort
		sessionRepo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.GameSession")).
			Return(nil).Once()
		cohortRepo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Cohort")).
			Run(func(args mock.Arguments) {
				createdCohorts = append(createdCohorts, args.Get(2).(*models.Cohort))
			}).
			Return(nil).Twice()

		var seededRecords []*models.ReputationRecord
		repRepo.On("Upsert", mock.Anything, mock.Anything, mock.AnythingOfType("*models.ReputationRecord")).
			Run(func(args mock.Arguments) {
				seededRecords = append(seededRecords, args.Get(2).(*models.ReputationRecord))
			}).
			Return(nil).Times(4) // 2 игрока x 2 когорты

		players := []uuid.UUID{uuid.New(), uuid.New()}
		session, err := svc.SeedSession(context.Background(), SeedSessionRequest{
			GameDate:  gameDate,
			PlayerIDs: players,
			Cohorts: []CohortSeed{
				{
					SocialClass:    models.ClassLower,
					ProvinceID:     "prov-a",
					SettlementType: models.SettlementUrban,
					Population:     12000,
					CanVote:        true,
					Cube:           models.CubePosition{Economic: -6},
					Issues:         map[models.IssueKey]float64{models.IssueWorkerRights: 8},
					Salience:       map[models.IssueKey]float64{models.IssueWorkerRights: 1},
				},
				{
					SocialClass:    models.ClassLower,
					ProvinceID:     "prov-a",
					SettlementType: models.SettlementRural,
					Population:     30000,
					CanVote:        false,
				},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, models.SessionStatusActive, session.Status)
		assert.Equal(t, 1, session.CurrentTurn)
		assert.Equal(t, gameDate, session.GameDate)
		assert.Equal(t, session.TurnStartedAt.Add(24*time.Hour), session.TurnEndsAt)

		require.Len(t, createdCohorts, 2)
		// Частичная карта позиций дополняется до полного каталога
		assert.Len(t, createdCohorts[0].DefaultPosition.Issues, models.IssueCount)
		assert.Equal(t, 8.0, createdCohorts[0].DefaultPosition.Issues[models.IssueWorkerRights])

		require.Len(t, seededRecords, 4)
		for _, rec := range seededRecords {
			assert.Equal(t, models.ReputationSeedDefault, rec.Approval)
			assert.Equal(t, session.ID, rec.SessionID)
		}
		sessionRepo.AssertExpectations(t)
		cohortRepo.AssertExpectations(t)
		repRepo.AssertExpectations(t)
	})
}
