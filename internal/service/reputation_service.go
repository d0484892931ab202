package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
)

const (
	// decayNoiseFloor — изменения меньше этого порога не записываются,
	// чтобы не засорять историю шумом.
	decayNoiseFloor = 0.1

	SourceCampaign    = "campaign"
	SourcePolicy      = "policy"
	SourceTurnDecay   = "turn-decay"
	SourceEndorsement = "endorsement"
	SourceNewsEvent   = "news-event"
)

// ReputationService применяет дельты одобрения к записям (игрок, когорта)
// и владеет проходами затухания и компактации истории.
//
//go:generate mockery --name ReputationService --output ./mocks --outpkg mocks --case=underscore
type ReputationService interface {
	// ApplyReputationChange применяет дельту к записи пары (игрок, когорта):
	// ленивое создание с дефолтом 40, зажим в [0,100], запись в ограниченную
	// историю. Атомарно на уровне записи.
	ApplyReputationChange(ctx context.Context, sessionID, playerID, cohortID uuid.UUID, delta float64, source, sourceID string, turn int) (*models.ReputationRecord, error)

	// ApplyPolicyImpact применяет влияние политики на репутацию игрока
	// против каждой когорты сессии согласно его роли.
	ApplyPolicyImpact(ctx context.Context, policy *models.Policy, playerID uuid.UUID, role Role, turn int) error

	// ApplySessionDecay тянет каждое одобрение сессии к базовым 40.
	// Возвращает число фактически затронутых записей.
	ApplySessionDecay(ctx context.Context, sessionID uuid.UUID, turn int) (int, error)

	// CompactHistories усекает истории сверх лимита (обслуживающий проход
	// раз в 3 хода). Возвращает число усеченных записей.
	CompactHistories(ctx context.Context, sessionID uuid.UUID) (int, error)

	// ApplyEndorsement переносит часть доверия к эндорсеру на кандидата
	// в каждой когорте, которая знает эндорсера.
	ApplyEndorsement(ctx context.Context, sessionID, endorserID, candidateID uuid.UUID, turn int) (int, error)

	// PreviewApproval возвращает взвешенное населением одобрение игрока
	// среди когорт с правом голоса (prediction/preview).
	PreviewApproval(ctx context.Context, sessionID, playerID uuid.UUID) (float64, error)
}

type reputationService struct {
	db         repository.DBTX
	txRunner   repository.TxRunner
	repRepo    repository.ReputationRepository
	cohortRepo repository.CohortRepository
	decayRate  float64
	logger     *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewReputationService создает сервис репутации.
// decayRate — доля дистанции до базы, снимаемая за ход (например, 0.02).
func NewReputationService(
	db repository.DBTX,
	txRunner repository.TxRunner,
	repRepo repository.ReputationRepository,
	cohortRepo repository.CohortRepository,
	decayRate float64,
	rng *rand.Rand,
	logger *zap.Logger,
) ReputationService {
	return &reputationService{
		db:         db,
		txRunner:   txRunner,
		repRepo:    repRepo,
		cohortRepo: cohortRepo,
		decayRate:  decayRate,
		rng:        rng,
		logger:     logger.Named("ReputationService"),
	}
}

func (s *reputationService) ApplyReputationChange(ctx context.Context, sessionID, playerID, cohortID uuid.UUID, delta float64, source, sourceID string, turn int) (*models.ReputationRecord, error) {
	var out *models.ReputationRecord
	err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		rec, err := s.repRepo.GetForUpdate(ctx, tx, sessionID, playerID, cohortID)
		if errors.Is(err, models.ErrNotFound) {
			// Ленивое создание: впервые встреченная когорта, дефолт 40
			rec = models.NewDefaultReputationRecord(sessionID, playerID, cohortID)
		} else if err != nil {
			return err
		}

		reason := source
		if sourceID != "" {
			reason = fmt.Sprintf("%s:%s", source, sourceID)
		}

		rec.Approval = models.ClampApproval(rec.Approval + delta)
		rec.AppendHistory(models.ReputationChange{
			Turn:     turn,
			Approval: rec.Approval,
			Delta:    delta,
			Reason:   reason,
		})
		rec.UpdatedTurn = turn

		if err := s.repRepo.Upsert(ctx, tx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	reputationChangesTotal.WithLabelValues(source).Inc()
	s.logger.Debug("Reputation change applied",
		zap.String("playerID", playerID.String()),
		zap.String("cohortID", cohortID.String()),
		zap.Float64("delta", delta),
		zap.Float64("approval", out.Approval),
		zap.String("source", source))
	return out, nil
}

func (s *reputationService) ApplyPolicyImpact(ctx context.Context, policy *models.Policy, playerID uuid.UUID, role Role, turn int) error {
	// Воздержание: нулевое влияние без расчета совпадений
	if role == RoleAbstain {
		return nil
	}

	cohorts, err := s.cohortRepo.ListBySession(ctx, s.db, policy.SessionID)
	if err != nil {
		return fmt.Errorf("failed to list cohorts for policy impact: %w", err)
	}

	for _, cohort := range cohorts {
		issueMatch := CalculateIssueMatch(policy.IssuePositions, cohort.DefaultPosition)
		cubeMatch := CalculateCubeMatch(policy.Cube, cohort.DefaultPosition.Cube)
		impact := CalculatePolicyImpact(role, issueMatch, cubeMatch)
		if impact == 0 {
			continue
		}
		if _, err := s.ApplyReputationChange(ctx, policy.SessionID, playerID, cohort.ID, impact, SourcePolicy, policy.ID.String(), turn); err != nil {
			return fmt.Errorf("failed to apply policy impact to cohort %s: %w", cohort.ID, err)
		}
	}
	return nil
}

func (s *reputationService) ApplySessionDecay(ctx context.Context, sessionID uuid.UUID, turn int) (int, error) {
	records, err := s.repRepo.ListBySession(ctx, s.db, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to list reputation records for decay: %w", err)
	}

	applied := 0
	for _, rec := range records {
		distanceFromBase := rec.Approval - models.ReputationBaseline
		decay := distanceFromBase * s.decayRate
		if decay > -decayNoiseFloor && decay < decayNoiseFloor {
			continue
		}
		// Затухание идет тем же путем, что любое изменение, и попадает в историю
		if _, err := s.ApplyReputationChange(ctx, sessionID, rec.PlayerID, rec.CohortID, -decay, SourceTurnDecay, "", turn); err != nil {
			return applied, fmt.Errorf("failed to apply decay: %w", err)
		}
		applied++
	}
	return applied, nil
}

func (s *reputationService) CompactHistories(ctx context.Context, sessionID uuid.UUID) (int, error) {
	records, err := s.repRepo.ListBySession(ctx, s.db, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to list reputation records for compaction: %w", err)
	}

	compacted := 0
	for _, rec := range records {
		if len(rec.History) <= models.ReputationHistoryLimit {
			continue
		}
		err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
			fresh, err := s.repRepo.GetForUpdate(ctx, tx, sessionID, rec.PlayerID, rec.CohortID)
			if err != nil {
				return err
			}
			fresh.TrimHistory()
			return s.repRepo.Upsert(ctx, tx, fresh)
		})
		if err != nil {
			return compacted, fmt.Errorf("failed to compact reputation history: %w", err)
		}
		compacted++
	}
	return compacted, nil
}

func (s *reputationService) ApplyEndorsement(ctx context.Context, sessionID, endorserID, candidateID uuid.UUID, turn int) (int, error) {
	records, err := s.repRepo.ListByPlayer(ctx, s.db, sessionID, endorserID)
	if err != nil {
		return 0, fmt.Errorf("failed to list endorser reputation: %w", err)
	}

	affected := 0
	for _, rec := range records {
		s.rngMu.Lock()
		transfer := CalculateEndorsementTransfer(rec.Approval, s.rng)
		s.rngMu.Unlock()

		if _, err := s.ApplyReputationChange(ctx, sessionID, candidateID, rec.CohortID, transfer, SourceEndorsement, endorserID.String(), turn); err != nil {
			return affected, fmt.Errorf("failed to apply endorsement transfer: %w", err)
		}
		affected++
	}
	return affected, nil
}

func (s *reputationService) PreviewApproval(ctx context.Context, sessionID, playerID uuid.UUID) (float64, error) {
	cohorts, err := s.cohortRepo.ListVotingEligible(ctx, s.db, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to list voting-eligible cohorts: %w", err)
	}
	if len(cohorts) == 0 {
		return 0, models.ErrCohortNotFound
	}

	records, err := s.repRepo.ListByPlayer(ctx, s.db, sessionID, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list player reputation: %w", err)
	}
	byCohort := make(map[uuid.UUID]float64, len(records))
	for _, rec := range records {
		byCohort[rec.CohortID] = rec.Approval
	}

	var weighted float64
	var totalPop int64
	for _, cohort := range cohorts {
		approval, ok := byCohort[cohort.ID]
		if !ok {
			approval = models.ReputationLazyDefault
		}
		weighted += approval * float64(cohort.Population)
		totalPop += cohort.Population
	}
	if totalPop == 0 {
		return 0, ErrEmptyProvince
	}
	return weighted / float64(totalPop), nil
}
