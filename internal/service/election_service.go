package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/messaging"
	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
)

// Веса осей идеологической дистанции избирателя: экономика доминирует
// в моделируемой эпохе.
const (
	voteEconomicWeight  = 0.5
	voteSocialWeight    = 0.3
	voteAuthorityWeight = 0.2

	// Коэффициенты привлекательности поверх чистой идеологии.
	voteReputationDivisor   = 50.0
	voteFundingDivisor      = 10.0
	voteEndorsementWeight   = 0.5

	// Каскад "победитель получает больше": доли верхних двух мест.
	topShareMin    = 0.40
	topShareSpread = 0.20 // 40–60%
	secondShareMin = 0.50
	secondSpread   = 0.20 // 50–70% остатка
)

// ElectionService симулирует выборы NPC-избирателей: распределяет население
// когорт по кандидатам без перебора индивидуальных агентов.
//
//go:generate mockery --name ElectionService --output ./mocks --outpkg mocks --case=underscore
type ElectionService interface {
	// SimulateElection считает исход выборов в одной провинции.
	// provincePopulation нужен только для синтетической когорты-фолбэка,
	// когда у провинции не нашлось ни одной когорты.
	SimulateElection(ctx context.Context, sessionID uuid.UUID, provinceID string, provincePopulation int64, candidates []models.Candidate, turn int) (*models.ElectionResult, error)

	// RunSessionElections прогоняет выборы по всем провинциям сессии
	// с зарегистрированными кандидатами. Вызывается оркестратором
	// на многолетнем такте.
	RunSessionElections(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.ElectionResult, error)
}

type electionService struct {
	db            repository.DBTX
	txRunner      repository.TxRunner
	cohortRepo    repository.CohortRepository
	repRepo       repository.ReputationRepository
	electionRepo  repository.ElectionRepository
	provinceCache repository.ProvinceCohortCache
	publisher     messaging.ElectionResultPublisher
	logger        *zap.Logger
}

// NewElectionService создает симулятор выборов.
func NewElectionService(
	db repository.DBTX,
	txRunner repository.TxRunner,
	cohortRepo repository.CohortRepository,
	repRepo repository.ReputationRepository,
	electionRepo repository.ElectionRepository,
	provinceCache repository.ProvinceCohortCache,
	publisher messaging.ElectionResultPublisher,
	logger *zap.Logger,
) ElectionService {
	return &electionService{
		db:            db,
		txRunner:      txRunner,
		cohortRepo:    cohortRepo,
		repRepo:       repRepo,
		electionRepo:  electionRepo,
		provinceCache: provinceCache,
		publisher:     publisher,
		logger:        logger.Named("ElectionService"),
	}
}

func (s *electionService) SimulateElection(ctx context.Context, sessionID uuid.UUID, provinceID string, provincePopulation int64, candidates []models.Candidate, turn int) (*models.ElectionResult, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	cohorts, err := s.provinceCohorts(ctx, sessionID, provinceID)
	if err != nil {
		return nil, err
	}
	if len(cohorts) == 0 {
		if provincePopulation <= 0 {
			return nil, ErrEmptyProvince
		}
		// Провинция без когорт: одна синтетическая когорта на все население
		cohorts = []*models.Cohort{syntheticCohort(sessionID, provinceID, provincePopulation)}
		s.logger.Warn("No cohorts resolvable for province, using synthetic fallback",
			zap.String("provinceID", provinceID),
			zap.Int64("population", provincePopulation))
	}

	// Детерминированный сид: повторный прогон того же хода дает тот же исход
	rng := rand.New(rand.NewSource(electionSeed(sessionID, provinceID, turn)))

	approvals, err := s.candidateApprovals(ctx, sessionID, candidates)
	if err != nil {
		return nil, err
	}

	tally := make(map[uuid.UUID]int64, len(candidates))
	var totalVotes int64
	for _, cohort := range cohorts {
		if cohort.Population <= 0 {
			continue
		}
		ranked := rankCandidates(candidates, cohort, approvals)
		allocateVotes(tally, ranked, cohort.Population, rng)
		totalVotes += cohort.Population
	}

	result := &models.ElectionResult{
		ID:         uuid.New(),
		SessionID:  sessionID,
		ProvinceID: provinceID,
		Turn:       turn,
		Tally:      sortedTally(tally),
		TotalVotes: totalVotes,
	}
	if err := s.electionRepo.SaveResult(ctx, s.db, result); err != nil {
		return nil, fmt.Errorf("failed to persist election result: %w", err)
	}
	electionsSimulatedTotal.Inc()

	if err := s.publisher.PublishElectionCompleted(ctx, messaging.ElectionCompletedPayload{
		SessionID:  sessionID,
		ProvinceID: provinceID,
		Turn:       turn,
		Tally:      result.Tally,
		TotalVotes: result.TotalVotes,
	}); err != nil {
		// Результат уже сохранен; потеря нотификации не отменяет выборы
		s.logger.Warn("Failed to publish election result", zap.String("provinceID", provinceID), zap.Error(err))
	}

	s.logger.Info("Election simulated",
		zap.String("provinceID", provinceID),
		zap.Int("turn", turn),
		zap.Int64("totalVotes", totalVotes),
		zap.Int("candidates", len(candidates)))
	return result, nil
}

func (s *electionService) RunSessionElections(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.ElectionResult, error) {
	candidates, err := s.electionRepo.ListCandidates(ctx, s.db, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list election candidates: %w", err)
	}
	if len(candidates) == 0 {
		s.logger.Warn("Election due but no candidates registered, skipping",
			zap.String("sessionID", sessionID.String()),
			zap.Int("turn", turn))
		return nil, nil
	}

	cohorts, err := s.cohortRepo.ListBySession(ctx, s.db, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session cohorts: %w", err)
	}
	populations := make(map[string]int64)
	for _, cohort := range cohorts {
		populations[cohort.ProvinceID] += cohort.Population
	}
	provinces := make([]string, 0, len(populations))
	for provinceID := range populations {
		provinces = append(provinces, provinceID)
	}
	sort.Strings(provinces)

	results := make([]*models.ElectionResult, 0, len(provinces))
	for _, provinceID := range provinces {
		result, err := s.SimulateElection(ctx, sessionID, provinceID, populations[provinceID], candidates, turn)
		if err != nil {
			return results, fmt.Errorf("failed to simulate election in province %s: %w", provinceID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// provinceCohorts возвращает когорты провинции, по возможности через Redis.
func (s *electionService) provinceCohorts(ctx context.Context, sessionID uuid.UUID, provinceID string) ([]*models.Cohort, error) {
	ids, err := s.provinceCache.GetCohortIDs(ctx, sessionID, provinceID)
	if err == nil {
		cohorts := make([]*models.Cohort, 0, len(ids))
		for _, id := range ids {
			cohort, err := s.cohortRepo.GetByID(ctx, s.db, id)
			if err != nil {
				// Кэш разошелся с базой, перечитываем провинцию целиком
				s.logger.Warn("Cached cohort missing, falling back to full province read",
					zap.String("cohortID", id.String()), zap.Error(err))
				return s.provinceCohortsUncached(ctx, sessionID, provinceID)
			}
			if cohort.Population > 0 {
				cohorts = append(cohorts, cohort)
			}
		}
		return cohorts, nil
	}
	return s.provinceCohortsUncached(ctx, sessionID, provinceID)
}

func (s *electionService) provinceCohortsUncached(ctx context.Context, sessionID uuid.UUID, provinceID string) ([]*models.Cohort, error) {
	cohorts, err := s.cohortRepo.ListByProvince(ctx, s.db, sessionID, provinceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list province cohorts: %w", err)
	}
	if len(cohorts) > 0 {
		ids := make([]uuid.UUID, len(cohorts))
		for i, cohort := range cohorts {
			ids[i] = cohort.ID
		}
		if err := s.provinceCache.SetCohortIDs(ctx, sessionID, provinceID, ids); err != nil {
			s.logger.Warn("Failed to warm province cohort cache", zap.String("provinceID", provinceID), zap.Error(err))
		}
	}
	return cohorts, nil
}

// candidateApprovals загружает карты одобрения кандидатов по когортам.
// Отсутствующая запись трактуется лениво как дефолтные 40.
func (s *electionService) candidateApprovals(ctx context.Context, sessionID uuid.UUID, candidates []models.Candidate) (map[uuid.UUID]map[uuid.UUID]float64, error) {
	approvals := make(map[uuid.UUID]map[uuid.UUID]float64, len(candidates))
	for _, candidate := range candidates {
		records, err := s.repRepo.ListByPlayer(ctx, s.db, sessionID, candidate.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("failed to list candidate reputation: %w", err)
		}
		byCohort := make(map[uuid.UUID]float64, len(records))
		for _, rec := range records {
			byCohort[rec.CohortID] = rec.Approval
		}
		approvals[candidate.PlayerID] = byCohort
	}
	return approvals, nil
}

type rankedCandidate struct {
	playerID uuid.UUID
	adjusted float64
}

// rankCandidates сортирует кандидатов по возрастанию скорректированной
// дистанции до когорты. Тай-брейк по ID кандидата ради детерминизма.
func rankCandidates(candidates []models.Candidate, cohort *models.Cohort, approvals map[uuid.UUID]map[uuid.UUID]float64) []rankedCandidate {
	ranked := make([]rankedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		distance := voteEconomicWeight*math.Abs(candidate.Position.Economic-cohort.DefaultPosition.Cube.Economic) +
			voteSocialWeight*math.Abs(candidate.Position.Social-cohort.DefaultPosition.Cube.Social) +
			voteAuthorityWeight*math.Abs(candidate.Position.Authority-cohort.DefaultPosition.Cube.Authority)

		approval, ok := approvals[candidate.PlayerID][cohort.ID]
		if !ok {
			approval = models.ReputationLazyDefault
		}

		adjusted := distance -
			approval/voteReputationDivisor -
			math.Log(candidate.Funding+1)/voteFundingDivisor -
			voteEndorsementWeight*float64(candidate.Endorsements)
		ranked = append(ranked, rankedCandidate{playerID: candidate.PlayerID, adjusted: adjusted})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].adjusted != ranked[j].adjusted {
			return ranked[i].adjusted < ranked[j].adjusted
		}
		return ranked[i].playerID.String() < ranked[j].playerID.String()
	})
	return ranked
}

// allocateVotes распределяет население когорты каскадом: лидер берет
// случайные 40–60%, второй — 50–70% остатка, прочие делят хвост поровну.
// Инвариант: сумма розданных голосов строго равна населению когорты.
func allocateVotes(tally map[uuid.UUID]int64, ranked []rankedCandidate, population int64, rng *rand.Rand) {
	if len(ranked) == 1 {
		tally[ranked[0].playerID] += population
		return
	}

	topShare := topShareMin + rng.Float64()*topShareSpread
	topVotes := int64(math.Round(float64(population) * topShare))
	if topVotes > population {
		topVotes = population
	}
	tally[ranked[0].playerID] += topVotes
	remainder := population - topVotes

	if len(ranked) == 2 {
		tally[ranked[1].playerID] += remainder
		return
	}

	secondShare := secondShareMin + rng.Float64()*secondSpread
	secondVotes := int64(math.Round(float64(remainder) * secondShare))
	if secondVotes > remainder {
		secondVotes = remainder
	}
	tally[ranked[1].playerID] += secondVotes
	rest := remainder - secondVotes

	others := ranked[2:]
	base := rest / int64(len(others))
	leftover := rest % int64(len(others))
	for i, rc := range others {
		votes := base
		if int64(i) < leftover {
			votes++
		}
		tally[rc.playerID] += votes
	}
}

func sortedTally(tally map[uuid.UUID]int64) []models.CandidateResult {
	out := make([]models.CandidateResult, 0, len(tally))
	for playerID, votes := range tally {
		out = append(out, models.CandidateResult{PlayerID: playerID, Votes: votes})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].PlayerID.String() < out[j].PlayerID.String()
	})
	return out
}

// electionSeed строит детерминированный сид из сессии, провинции и хода.
func electionSeed(sessionID uuid.UUID, provinceID string, turn int) int64 {
	h := fnv.New64a()
	h.Write(sessionID[:])
	h.Write([]byte(provinceID))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(turn))
	h.Write(buf[:])
	return int64(h.Sum64())
}

// syntheticCohort — когорта-фолбэк для провинции без демографии.
func syntheticCohort(sessionID uuid.UUID, provinceID string, population int64) *models.Cohort {
	return &models.Cohort{
		ID:              uuid.New(),
		SessionID:       sessionID,
		ProvinceID:      provinceID,
		Population:      population,
		CanVote:         true,
		DefaultPosition: models.NewPoliticalPosition(models.CubePosition{}, nil, nil),
	}
}
