package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
)

// prorationCutoff — доля пути до применения отложенного эффекта, начиная
// с которой эффект вытесненной политики выживает (в урезанном виде).
const prorationCutoff = 0.5

// PolicyService владеет жизненным циклом политики:
// proposed -> enacted -> superseded, событийное удаление и отложенные эффекты.
//
//go:generate mockery --name PolicyService --output ./mocks --outpkg mocks --case=underscore
type PolicyService interface {
	// ProposePolicy валидирует и сохраняет новую политику в статусе proposed.
	ProposePolicy(ctx context.Context, policy *models.Policy) error

	// MarkVotePassed помечает предложенную политику прошедшей голосование.
	// Принятие произойдет на проходе конца хода.
	MarkVotePassed(ctx context.Context, policyID uuid.UUID) error

	// EnactPolicy принимает политику: транзакционно вытесняет действующих
	// конкурентов exclusive-категории и переводит политику в enacted.
	// Возвращает принятую политику со связями вытеснения.
	EnactPolicy(ctx context.Context, policyID uuid.UUID, turn int) (*models.Policy, error)

	// EnactPassedProposals принимает все предложенные политики сессии,
	// прошедшие голосование. Шаг прохода конца хода.
	EnactPassedProposals(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.Policy, error)

	// DeleteByEvent убирает действующую политику событием (война, кризис):
	// эффекты уходят в shadow-поля, причина фиксируется.
	DeleteByEvent(ctx context.Context, policyID uuid.UUID, reason string, turn int) error

	// ApplyDueDelayedEffects вливает созревшие отложенные эффекты в активные
	// (или теневые) показатели политик. Возвращает затронутые политики.
	ApplyDueDelayedEffects(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.Policy, error)
}

type policyService struct {
	txRunner   repository.TxRunner
	policyRepo repository.PolicyRepository
	logger     *zap.Logger
}

// NewPolicyService создает сервис жизненного цикла политик.
func NewPolicyService(
	txRunner repository.TxRunner,
	policyRepo repository.PolicyRepository,
	logger *zap.Logger,
) PolicyService {
	return &policyService{
		txRunner:   txRunner,
		policyRepo: policyRepo,
		logger:     logger.Named("PolicyService"),
	}
}

func (s *policyService) ProposePolicy(ctx context.Context, policy *models.Policy) error {
	if policy.Title == "" || policy.Category == "" {
		return fmt.Errorf("%w: policy requires title and category", models.ErrInvalidInput)
	}
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	policy.Status = models.PolicyStatusProposed
	policy.Cube = policy.Cube.Clamp()

	return s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := s.policyRepo.Create(ctx, tx, policy); err != nil {
			return err
		}
		s.logger.Info("Policy proposed",
			zap.String("policyID", policy.ID.String()),
			zap.String("category", policy.Category),
			zap.Int("turn", policy.ProposedTurn))
		return nil
	})
}

func (s *policyService) MarkVotePassed(ctx context.Context, policyID uuid.UUID) error {
	return s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		policy, err := s.policyRepo.GetByID(ctx, tx, policyID)
		if err != nil {
			return err
		}
		if policy.Status != models.PolicyStatusProposed {
			return models.ErrPolicyAlreadyResolved
		}
		policy.VotePassed = true
		return s.policyRepo.Save(ctx, tx, policy)
	})
}

func (s *policyService) EnactPolicy(ctx context.Context, policyID uuid.UUID, turn int) (*models.Policy, error) {
	var enacted *models.Policy
	err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		policy, err := s.enactLocked(ctx, tx, policyID, turn)
		if err != nil {
			return err
		}
		enacted = policy
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enacted, nil
}

// enactLocked выполняет принятие внутри уже открытой транзакции.
// GetByID и FindBySessionCategoryStatus берут FOR UPDATE, так что два
// конкурирующих принятия в одной категории сериализуются на строках.
func (s *policyService) enactLocked(ctx context.Context, tx repository.DBTX, policyID uuid.UUID, turn int) (*models.Policy, error) {
	policy, err := s.policyRepo.GetByID(ctx, tx, policyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyStatusProposed {
		return nil, models.ErrPolicyAlreadyResolved
	}
	if !policy.VotePassed {
		return nil, ErrNoVotePassed
	}

	if models.CategoryModeFor(policy.Category) == models.CategoryExclusive {
		incumbents, err := s.policyRepo.FindBySessionCategoryStatus(ctx, tx, policy.SessionID, policy.Category, models.PolicyStatusEnacted)
		if err != nil {
			return nil, err
		}
		for _, incumbent := range incumbents {
			if incumbent.ID == policy.ID {
				continue
			}
			s.supersede(incumbent, turn)
			incumbent.SupersededBy = &policy.ID
			if err := s.policyRepo.Save(ctx, tx, incumbent); err != nil {
				return nil, fmt.Errorf("failed to supersede policy %s: %w", incumbent.ID, err)
			}
			policy.Supersedes = append(policy.Supersedes, incumbent.ID)
			s.logger.Info("Policy superseded",
				zap.String("old", incumbent.ID.String()),
				zap.String("new", policy.ID.String()),
				zap.String("category", policy.Category))
		}
	}

	policy.Status = models.PolicyStatusEnacted
	policy.EnactedTurn = &turn
	if err := s.policyRepo.Save(ctx, tx, policy); err != nil {
		return nil, err
	}
	s.logger.Info("Policy enacted",
		zap.String("policyID", policy.ID.String()),
		zap.Int("turn", turn))
	return policy, nil
}

func (s *policyService) EnactPassedProposals(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.Policy, error) {
	var enacted []*models.Policy
	err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		proposals, err := s.policyRepo.ListBySessionStatus(ctx, tx, sessionID, models.PolicyStatusProposed)
		if err != nil {
			return err
		}
		for _, proposal := range proposals {
			if !proposal.VotePassed {
				continue
			}
			policy, err := s.enactLocked(ctx, tx, proposal.ID, turn)
			if err != nil {
				return fmt.Errorf("failed to enact proposal %s: %w", proposal.ID, err)
			}
			enacted = append(enacted, policy)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enacted, nil
}

func (s *policyService) DeleteByEvent(ctx context.Context, policyID uuid.UUID, reason string, turn int) error {
	if reason == "" {
		return fmt.Errorf("%w: event deletion requires a reason", models.ErrInvalidInput)
	}
	return s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		policy, err := s.policyRepo.GetByID(ctx, tx, policyID)
		if err != nil {
			return err
		}
		if policy.Status != models.PolicyStatusEnacted {
			return models.ErrPolicyNotEnacted
		}
		s.supersede(policy, turn)
		policy.DeletedByEvent = &reason
		if err := s.policyRepo.Save(ctx, tx, policy); err != nil {
			return err
		}
		s.logger.Info("Policy removed by event",
			zap.String("policyID", policy.ID.String()),
			zap.String("reason", reason),
			zap.Int("turn", turn))
		return nil
	})
}

// supersede переводит действующую политику в superseded: активные эффекты
// уходят в shadow-поля, отложенный эффект либо урезается пропорционально
// пройденному пути (>= 50%), либо отменяется целиком.
func (s *policyService) supersede(policy *models.Policy, turn int) {
	econ := policy.EconomicImpact
	stab := policy.StabilityImpact
	policy.SupersededEconomicImpact = &econ
	policy.SupersededStabilityImpact = &stab
	policy.EconomicImpact = 0
	policy.StabilityImpact = 0
	policy.Status = models.PolicyStatusSuperseded

	if policy.HasPendingDelayedEffect(turn) {
		completion := delayedEffectCompletion(policy, turn)
		if completion >= prorationCutoff {
			policy.DelayedEffect.Magnitude *= completion
		} else {
			policy.CancelledDelayedEffect = policy.DelayedEffect
			policy.DelayedEffect = nil
		}
	}
}

// delayedEffectCompletion — доля пути от принятия до хода применения,
// зажатая в [0, 1]. Политика без хода принятия или с мгновенным эффектом
// считается завершенной.
func delayedEffectCompletion(policy *models.Policy, turn int) float64 {
	if policy.EnactedTurn == nil || policy.DelayedEffect == nil {
		return 1
	}
	total := policy.DelayedEffect.ApplyTurn - *policy.EnactedTurn
	if total <= 0 {
		return 1
	}
	completion := float64(turn-*policy.EnactedTurn) / float64(total)
	if completion < 0 {
		return 0
	}
	if completion > 1 {
		return 1
	}
	return completion
}

func (s *policyService) ApplyDueDelayedEffects(ctx context.Context, sessionID uuid.UUID, turn int) ([]*models.Policy, error) {
	var applied []*models.Policy
	err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		due, err := s.policyRepo.ListDelayedEffectsDue(ctx, tx, sessionID, turn)
		if err != nil {
			return err
		}
		for _, policy := range due {
			effect := policy.DelayedEffect
			policy.DelayedEffect = nil
			s.applyEffect(policy, effect)
			if err := s.policyRepo.Save(ctx, tx, policy); err != nil {
				return fmt.Errorf("failed to apply delayed effect for policy %s: %w", policy.ID, err)
			}
			applied = append(applied, policy)
			s.logger.Info("Delayed effect applied",
				zap.String("policyID", policy.ID.String()),
				zap.String("kind", effect.Kind),
				zap.Float64("magnitude", effect.Magnitude),
				zap.Int("turn", turn))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// applyEffect вливает созревший эффект. Для действующей политики — в
// активные показатели; для вытесненной (прорейтированный выживший) —
// в теневые, чтобы активные поля superseded-политики оставались нулевыми.
func (s *policyService) applyEffect(policy *models.Policy, effect *models.DelayedEffect) {
	active := policy.Status == models.PolicyStatusEnacted
	switch effect.Kind {
	case "stability":
		if active {
			policy.StabilityImpact += effect.Magnitude
		} else {
			addToShadow(&policy.SupersededStabilityImpact, effect.Magnitude)
		}
	default: // "economic" и неизвестные виды трактуются как экономические
		if active {
			policy.EconomicImpact += effect.Magnitude
		} else {
			addToShadow(&policy.SupersededEconomicImpact, effect.Magnitude)
		}
	}
}

func addToShadow(field **float64, magnitude float64) {
	if *field == nil {
		v := magnitude
		*field = &v
		return
	}
	**field += magnitude
}
