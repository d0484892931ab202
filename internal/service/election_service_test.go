package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	msgmocks "github.com/NathanielJL/polsim-sub002/internal/messaging/mocks"
	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository/mocks"
)

type electionFixture struct {
	cohortRepo   *mocks.CohortRepository
	repRepo      *mocks.ReputationRepository
	electionRepo *mocks.ElectionRepository
	cache        *mocks.ProvinceCohortCache
	publisher    *msgmocks.ElectionResultPublisher
	svc          ElectionService
}

func newElectionFixture() *electionFixture {
	f := &electionFixture{
		cohortRepo:   new(mocks.CohortRepository),
		repRepo:      new(mocks.ReputationRepository),
		electionRepo: new(mocks.ElectionRepository),
		cache:        new(mocks.ProvinceCohortCache),
		publisher:    new(msgmocks.ElectionResultPublisher),
	}
	f.svc = NewElectionService(nil, &mocks.FakeTxRunner{}, f.cohortRepo, f.repRepo, f.electionRepo, f.cache, f.publisher, zap.NewNop())
	return f
}

func testCandidates(n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			PlayerID: uuid.New(),
			Position: models.CubePosition{Economic: float64(i*4 - 6)},
		}
	}
	return out
}

func TestAllocateVotes_ConservesPopulation(t *testing.T) {
	// Каскад обязан раздать ровно население когорты, без потерь и дублей
	rng := rand.New(rand.NewSource(99))
	for trial := 0; trial < 1000; trial++ {
		nCandidates := 1 + rng.Intn(5)
		ranked := make([]rankedCandidate, nCandidates)
		for i := range ranked {
			ranked[i] = rankedCandidate{playerID: uuid.New(), adjusted: float64(i)}
		}
		population := int64(1 + rng.Intn(1000))

		tally := make(map[uuid.UUID]int64)
		allocateVotes(tally, ranked, population, rng)

		var total int64
		for _, votes := range tally {
			require.GreaterOrEqual(t, votes, int64(0))
			total += votes
		}
		require.Equal(t, population, total,
			"trial %d: %d candidates, population %d", trial, nCandidates, population)
	}
}

func TestAllocateVotes_Cascade(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	t.Run("sole candidate takes everything", func(t *testing.T) {
		only := rankedCandidate{playerID: uuid.New()}
		tally := make(map[uuid.UUID]int64)
		allocateVotes(tally, []rankedCandidate{only}, 1000, rng)
		assert.Equal(t, int64(1000), tally[only.playerID])
	})

	t.Run("leader share stays in the 40-60 band", func(t *testing.T) {
		ranked := []rankedCandidate{
			{playerID: uuid.New()}, {playerID: uuid.New()}, {playerID: uuid.New()},
		}
		for i := 0; i < 200; i++ {
			tally := make(map[uuid.UUID]int64)
			allocateVotes(tally, ranked, 10000, rng)
			leader := tally[ranked[0].playerID]
			assert.GreaterOrEqual(t, leader, int64(4000))
			assert.LessOrEqual(t, leader, int64(6000))
			// Второе место: 50-70% остатка
			second := tally[ranked[1].playerID]
			remainder := 10000 - leader
			assert.GreaterOrEqual(t, second, int64(float64(remainder)*0.5)-1)
			assert.LessOrEqual(t, second, int64(float64(remainder)*0.7)+1)
		}
	})
}

func TestRankCandidates_AttractionTerms(t *testing.T) {
	cohort := &models.Cohort{
		ID:              uuid.New(),
		DefaultPosition: models.NewPoliticalPosition(models.CubePosition{}, nil, nil),
	}
	ideologueA := models.Candidate{PlayerID: uuid.New(), Position: models.CubePosition{Economic: 2}}
	ideologueB := models.Candidate{PlayerID: uuid.New(), Position: models.CubePosition{Economic: 2}}

	t.Run("higher approval wins the tie", func(t *testing.T) {
		approvals := map[uuid.UUID]map[uuid.UUID]float64{
			ideologueA.PlayerID: {cohort.ID: 80},
			ideologueB.PlayerID: {cohort.ID: 20},
		}
		ranked := rankCandidates([]models.Candidate{ideologueB, ideologueA}, cohort, approvals)
		assert.Equal(t, ideologueA.PlayerID, ranked[0].playerID)
	})

	t.Run("funding and endorsements offset ideological distance", func(t *testing.T) {
		near := models.Candidate{PlayerID: uuid.New(), Position: models.CubePosition{Economic: 1}}
		farButBacked := models.Candidate{
			PlayerID:     uuid.New(),
			Position:     models.CubePosition{Economic: 4},
			Funding:      1000,
			Endorsements: 3,
		}
		// Одобрение одинаковое, решают деньги и эндорсменты:
		// дистанция 0.5*3=1.5 против ln(1001)/10 ~ 0.69 + 1.5 = 2.19 перевеса
		ranked := rankCandidates([]models.Candidate{near, farButBacked}, cohort, map[uuid.UUID]map[uuid.UUID]float64{})
		assert.Equal(t, farButBacked.PlayerID, ranked[0].playerID)
	})

	t.Run("missing approval falls back to lazy default", func(t *testing.T) {
		withDefault := rankCandidates([]models.Candidate{ideologueA}, cohort, map[uuid.UUID]map[uuid.UUID]float64{})
		explicit := rankCandidates([]models.Candidate{ideologueA}, cohort, map[uuid.UUID]map[uuid.UUID]float64{
			ideologueA.PlayerID: {cohort.ID: models.ReputationLazyDefault},
		})
		assert.Equal(t, explicit[0].adjusted, withDefault[0].adjusted)
	})
}

func TestElectionSeed_Deterministic(t *testing.T) {
	sessionID := uuid.New()
	assert.Equal(t, electionSeed(sessionID, "prov-1", 12), electionSeed(sessionID, "prov-1", 12))
	assert.NotEqual(t, electionSeed(sessionID, "prov-1", 12), electionSeed(sessionID, "prov-1", 13))
	assert.NotEqual(t, electionSeed(sessionID, "prov-1", 12), electionSeed(sessionID, "prov-2", 12))
}

func TestSimulateElection(t *testing.T) {
	sessionID := uuid.New()

	t.Run("no candidates", func(t *testing.T) {
		f := newElectionFixture()
		_, err := f.svc.SimulateElection(context.Background(), sessionID, "prov-1", 1000, nil, 12)
		assert.ErrorIs(t, err, ErrNoCandidates)
	})

	t.Run("empty province without population", func(t *testing.T) {
		f := newElectionFixture()
		f.cache.On("GetCohortIDs", mock.Anything, sessionID, "prov-1").Return(nil, models.ErrNotFound).Once()
		f.cohortRepo.On("ListByProvince", mock.Anything, mock.Anything, sessionID, "prov-1").
			Return([]*models.Cohort{}, nil).Once()

		_, err := f.svc.SimulateElection(context.Background(), sessionID, "prov-1", 0, testCandidates(2), 12)
		assert.ErrorIs(t, err, ErrEmptyProvince)
	})

	t.Run("synthetic cohort carries the whole province", func(t *testing.T) {
		f := newElectionFixture()
		candidates := testCandidates(3)
		f.cache.On("GetCohortIDs", mock.Anything, sessionID, "prov-1").Return(nil, models.ErrNotFound).Once()
		f.cohortRepo.On("ListByProvince", mock.Anything, mock.Anything, sessionID, "prov-1").
			Return([]*models.Cohort{}, nil).Once()
		for _, c := range candidates {
			f.repRepo.On("ListByPlayer", mock.Anything, mock.Anything, sessionID, c.PlayerID).
				Return([]*models.ReputationRecord{}, nil).Once()
		}
		f.electionRepo.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		f.publisher.On("PublishElectionCompleted", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := f.svc.SimulateElection(context.Background(), sessionID, "prov-1", 5000, candidates, 12)
		require.NoError(t, err)

		assert.Equal(t, int64(5000), result.TotalVotes)
		var total int64
		for _, cr := range result.Tally {
			total += cr.Votes
		}
		assert.Equal(t, int64(5000), total)
		f.electionRepo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("same turn reruns produce identical tallies", func(t *testing.T) {
		run := func() *models.ElectionResult {
			f := newElectionFixture()
			candidates := []models.Candidate{
				{PlayerID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Position: models.CubePosition{Economic: -3}},
				{PlayerID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Position: models.CubePosition{Economic: 3}},
				{PlayerID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Position: models.CubePosition{Economic: 8}},
			}
			cohort := &models.Cohort{
				ID:              uuid.MustParse("44444444-4444-4444-4444-444444444444"),
				SessionID:       sessionID,
				ProvinceID:      "prov-1",
				Population:      9999,
				CanVote:         true,
				DefaultPosition: models.NewPoliticalPosition(models.CubePosition{Economic: -2}, nil, nil),
			}
			f.cache.On("GetCohortIDs", mock.Anything, sessionID, "prov-1").
				Return([]uuid.UUID{cohort.ID}, nil).Once()
			f.cohortRepo.On("GetByID", mock.Anything, mock.Anything, cohort.ID).Return(cohort, nil).Once()
			for _, c := range candidates {
				f.repRepo.On("ListByPlayer", mock.Anything, mock.Anything, sessionID, c.PlayerID).
					Return([]*models.ReputationRecord{}, nil).Once()
			}
			f.electionRepo.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
			f.publisher.On("PublishElectionCompleted", mock.Anything, mock.Anything).Return(nil).Once()

			result, err := f.svc.SimulateElection(context.Background(), sessionID, "prov-1", 0, candidates, 12)
			require.NoError(t, err)
			return result
		}

		first, second := run(), run()
		assert.Equal(t, first.Tally, second.Tally)
		assert.Equal(t, first.TotalVotes, second.TotalVotes)
	})
}

func TestRunSessionElections(t *testing.T) {
	sessionID := uuid.New()

	t.Run("no registered candidates is a no-op", func(t *testing.T) {
		f := newElectionFixture()
		f.electionRepo.On("ListCandidates", mock.Anything, mock.Anything, sessionID).
			Return([]models.Candidate{}, nil).Once()

		results, err := f.svc.RunSessionElections(context.Background(), sessionID, 12)
		require.NoError(t, err)
		assert.Nil(t, results)
		f.cohortRepo.AssertNotCalled(t, "ListBySession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("runs one election per province", func(t *testing.T) {
		f := newElectionFixture()
		candidates := testCandidates(2)
		f.electionRepo.On("ListCandidates", mock.Anything, mock.Anything, sessionID).
			Return(candidates, nil).Once()

		cohortA := &models.Cohort{ID: uuid.New(), SessionID: sessionID, ProvinceID: "prov-a", Population: 1000, CanVote: true,
			DefaultPosition: models.NewPoliticalPosition(models.CubePosition{}, nil, nil)}
		cohortB := &models.Cohort{ID: uuid.New(), SessionID: sessionID, ProvinceID: "prov-b", Population: 2000, CanVote: true,
			DefaultPosition: models.NewPoliticalPosition(models.CubePosition{}, nil, nil)}
		f.cohortRepo.On("ListBySession", mock.Anything, mock.Anything, sessionID).
			Return([]*models.Cohort{cohortA, cohortB}, nil).Once()

		f.cache.On("GetCohortIDs", mock.Anything, sessionID, "prov-a").Return([]uuid.UUID{cohortA.ID}, nil).Once()
		f.cache.On("GetCohortIDs", mock.Anything, sessionID, "prov-b").Return([]uuid.UUID{cohortB.ID}, nil).Once()
		f.cohortRepo.On("GetByID", mock.Anything, mock.Anything, cohortA.ID).Return(cohortA, nil).Once()
		f.cohortRepo.On("GetByID", mock.Anything, mock.Anything, cohortB.ID).Return(cohortB, nil).Once()
		for _, c := range candidates {
			f.repRepo.On("ListByPlayer", mock.Anything, mock.Anything, sessionID, c.PlayerID).
				Return([]*models.ReputationRecord{}, nil).Twice()
		}
		f.electionRepo.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()
		f.publisher.On("PublishElectionCompleted", mock.Anything, mock.Anything).Return(nil).Twice()

		results, err := f.svc.RunSessionElections(context.Background(), sessionID, 12)
		require.NoError(t, err)
		require.Len(t, results, 2)
		// Провинции обходятся в стабильном порядке
		assert.Equal(t, "prov-a", results[0].ProvinceID)
		assert.Equal(t, "prov-b", results[1].ProvinceID)
		assert.Equal(t, int64(1000), results[0].TotalVotes)
		assert.Equal(t, int64(2000), results[1].TotalVotes)
	})
}
