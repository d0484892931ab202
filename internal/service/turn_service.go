package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/clients"
	"github.com/NathanielJL/polsim-sub002/internal/messaging"
	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
)

const (
	// historyCompactionCadence — обслуживающий проход компактации истории
	// выполняется каждый третий ход.
	historyCompactionCadence = 3

	stepCampaigns      = "campaigns"
	stepDecay          = "decay"
	stepEnactment      = "enactment"
	stepDelayedEffects = "delayed-effects"
	stepCompaction     = "compaction"
	stepAnnual         = "annual-triggers"
	stepAdvance        = "advance"
)

// TurnService — верхнеуровневый оркестратор хода. Выполняет упорядоченные
// шаги конца хода для одной сессии и продвигает счетчик.
//
//go:generate mockery --name TurnService --output ./mocks --outpkg mocks --case=underscore
type TurnService interface {
	// ProcessTurnEnd выполняет полный проход конца хода для сессии.
	// При любой ошибке сессия возвращается в active, ошибка поднимается
	// наверх: оператор может повторить ход без холодного рестарта.
	ProcessTurnEnd(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, error)
}

type turnService struct {
	db           repository.DBTX
	txRunner     repository.TxRunner
	sessionRepo  repository.SessionRepository
	campaignRepo repository.CampaignRepository
	cohortRepo   repository.CohortRepository
	electionRepo repository.ElectionRepository

	reputationSvc ReputationService
	policySvc     PolicyService
	electionSvc   ElectionService

	textGen       clients.TextGenClient
	publisher     messaging.SessionUpdatePublisher
	newsPublisher messaging.NewsEventPublisher
	provinceCache repository.ProvinceCohortCache

	turnDuration    time.Duration
	electionCadence int
	logger          *zap.Logger
}

// NewTurnService создает оркестратор хода.
// electionCadence — период выборов в игровых годах.
func NewTurnService(
	db repository.DBTX,
	txRunner repository.TxRunner,
	sessionRepo repository.SessionRepository,
	campaignRepo repository.CampaignRepository,
	cohortRepo repository.CohortRepository,
	electionRepo repository.ElectionRepository,
	reputationSvc ReputationService,
	policySvc PolicyService,
	electionSvc ElectionService,
	textGen clients.TextGenClient,
	publisher messaging.SessionUpdatePublisher,
	newsPublisher messaging.NewsEventPublisher,
	provinceCache repository.ProvinceCohortCache,
	turnDuration time.Duration,
	electionCadence int,
	logger *zap.Logger,
) TurnService {
	return &turnService{
		db:              db,
		txRunner:        txRunner,
		sessionRepo:     sessionRepo,
		campaignRepo:    campaignRepo,
		cohortRepo:      cohortRepo,
		electionRepo:    electionRepo,
		reputationSvc:   reputationSvc,
		policySvc:       policySvc,
		electionSvc:     electionSvc,
		textGen:         textGen,
		publisher:       publisher,
		newsPublisher:   newsPublisher,
		provinceCache:   provinceCache,
		turnDuration:    turnDuration,
		electionCadence: electionCadence,
		logger:          logger.Named("TurnService"),
	}
}

func (s *turnService) ProcessTurnEnd(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, error) {
	start := time.Now()

	session, err := s.sessionRepo.GetByID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.SetStatus(ctx, s.db, sessionID, models.SessionStatusActive, models.SessionStatusProcessing); err != nil {
		return nil, err
	}

	// Любой сбой или паника не должны оставить сессию в processing
	completed := false
	defer func() {
		if completed {
			return
		}
		if revertErr := s.sessionRepo.SetStatus(ctx, s.db, sessionID, models.SessionStatusProcessing, models.SessionStatusActive); revertErr != nil {
			s.logger.Error("Failed to revert session status after turn failure",
				zap.String("sessionID", sessionID.String()),
				zap.Error(revertErr))
		}
	}()

	newTurn := session.CurrentTurn + 1
	s.logger.Info("Turn-end pass started",
		zap.String("sessionID", sessionID.String()),
		zap.Int("newTurn", newTurn))

	campaignsApplied, err := s.resolveCampaigns(ctx, sessionID, newTurn)
	if err != nil {
		return nil, s.stepFailed(stepCampaigns, err)
	}

	decayed, err := s.reputationSvc.ApplySessionDecay(ctx, sessionID, newTurn)
	if err != nil {
		return nil, s.stepFailed(stepDecay, err)
	}

	enactedPolicies, err := s.policySvc.EnactPassedProposals(ctx, sessionID, newTurn)
	if err != nil {
		return nil, s.stepFailed(stepEnactment, err)
	}
	for _, policy := range enactedPolicies {
		if err := s.reputationSvc.ApplyPolicyImpact(ctx, policy, policy.ProposerID, RoleProposer, newTurn); err != nil {
			return nil, s.stepFailed(stepEnactment, err)
		}
	}
	if _, err := s.policySvc.ApplyDueDelayedEffects(ctx, sessionID, newTurn); err != nil {
		return nil, s.stepFailed(stepDelayedEffects, err)
	}

	if newTurn%historyCompactionCadence == 0 {
		compacted, err := s.reputationSvc.CompactHistories(ctx, sessionID)
		if err != nil {
			return nil, s.stepFailed(stepCompaction, err)
		}
		if compacted > 0 {
			s.logger.Info("Reputation histories compacted", zap.Int("records", compacted))
		}
	}

	newGameDate := session.NextGameDate()
	if models.IsJanuaryBoundary(session.GameDate, newGameDate) {
		if err := s.runAnnualTriggers(ctx, session, newGameDate, newTurn); err != nil {
			return nil, s.stepFailed(stepAnnual, err)
		}
	}

	now := time.Now().UTC()
	session.CurrentTurn = newTurn
	session.GameDate = newGameDate
	session.TurnStartedAt = now
	session.TurnEndsAt = now.Add(s.turnDuration)
	if err := s.sessionRepo.AdvanceTurn(ctx, s.db, session); err != nil {
		return nil, s.stepFailed(stepAdvance, err)
	}
	if err := s.sessionRepo.SetStatus(ctx, s.db, sessionID, models.SessionStatusProcessing, models.SessionStatusActive); err != nil {
		return nil, s.stepFailed(stepAdvance, err)
	}
	completed = true

	if err := s.publisher.PublishTurnCompleted(ctx, messaging.TurnCompletedPayload{
		SessionID:        sessionID,
		Turn:             newTurn,
		GameDate:         session.GameDate,
		TurnEndsAt:       session.TurnEndsAt,
		PoliciesEnacted:  len(enactedPolicies),
		CampaignsApplied: campaignsApplied,
		DecayedRecords:   decayed,
	}); err != nil {
		// Ход уже зафиксирован, потеря нотификации не откатывает его
		s.logger.Warn("Failed to publish turn completion", zap.Error(err))
	}

	turnsProcessedTotal.Inc()
	turnDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Turn-end pass finished",
		zap.String("sessionID", sessionID.String()),
		zap.Int("turn", newTurn),
		zap.Int("campaignsApplied", campaignsApplied),
		zap.Int("decayedRecords", decayed),
		zap.Int("policiesEnacted", len(enactedPolicies)),
		zap.Duration("took", time.Since(start)))
	return session, nil
}

func (s *turnService) stepFailed(step string, err error) error {
	turnFailuresTotal.WithLabelValues(step).Inc()
	s.logger.Error("Turn step failed", zap.String("step", step), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrTurnStepFailed, step, err)
}

// resolveCampaigns применяет буст каждой кампании, завершающейся на этом
// ходу, и необратимо помечает ее завершенной.
func (s *turnService) resolveCampaigns(ctx context.Context, sessionID uuid.UUID, turn int) (int, error) {
	campaigns, err := s.campaignRepo.FindActiveEndingAt(ctx, s.db, sessionID, turn)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, campaign := range campaigns {
		if _, err := s.reputationSvc.ApplyReputationChange(ctx, sessionID, campaign.PlayerID, campaign.CohortID, campaign.Boost, SourceCampaign, campaign.ID.String(), turn); err != nil {
			return applied, fmt.Errorf("failed to apply campaign boost %s: %w", campaign.ID, err)
		}
		if err := s.campaignRepo.MarkCompleted(ctx, s.db, campaign.ID); err != nil {
			return applied, fmt.Errorf("failed to complete campaign %s: %w", campaign.ID, err)
		}
		applied++
	}
	return applied, nil
}

// runAnnualTriggers — ежегодные процессы на границе января: иммиграция
// (вердикт AI), новостное событие года и, на многолетнем такте, выборы.
// Новости идут до выборов: сдвиг одобрения публичных фигур должен успеть
// попасть в тираж голосования.
func (s *turnService) runAnnualTriggers(ctx context.Context, session *models.GameSession, newGameDate time.Time, turn int) error {
	year := newGameDate.Year()
	s.logger.Info("Annual boundary crossed",
		zap.String("sessionID", session.ID.String()),
		zap.Int("year", year))

	if err := s.processImmigration(ctx, session, year, turn); err != nil {
		if errors.Is(err, models.ErrMalformedAIResponse) {
			// Битый ответ коллаборатора не должен валить весь ход
			s.logger.Warn("Skipping immigration sub-step: malformed AI response", zap.Error(err))
		} else {
			return err
		}
	}

	if err := s.processNewsEvent(ctx, session, year, turn); err != nil {
		if errors.Is(err, models.ErrMalformedAIResponse) {
			s.logger.Warn("Skipping news event sub-step: malformed AI response", zap.Error(err))
		} else {
			return err
		}
	}

	if s.electionCadence > 0 && year%s.electionCadence == 0 {
		if _, err := s.electionSvc.RunSessionElections(ctx, session.ID, turn); err != nil {
			return err
		}
	}
	return nil
}

// processNewsEvent запрашивает у AI-коллаборатора новостное событие года:
// сдвиг одобрения применяется к каждой зарегистрированной публичной фигуре
// против каждой когорты сессии, заголовок и нарратив уходят в очередь
// новостей. Без зарегистрированных фигур год проходит без прессы.
func (s *turnService) processNewsEvent(ctx context.Context, session *models.GameSession, year, turn int) error {
	figures, err := s.electionRepo.ListCandidates(ctx, s.db, session.ID)
	if err != nil {
		return fmt.Errorf("failed to list public figures for news event: %w", err)
	}
	if len(figures) == 0 {
		return nil
	}

	eventCtx := clients.EventContext{
		EventType:   "annual_review",
		Severity:    "routine",
		SessionYear: year,
		Indicators: map[string]float64{
			"public_figures": float64(len(figures)),
		},
	}
	judgment, err := s.textGen.JudgeEvent(ctx, eventCtx)
	if err != nil {
		return err
	}

	body, err := s.textGen.GenerateEventText(ctx, eventCtx)
	if err != nil {
		// Нарратив опционален, вердикт — нет: публикуем с одним заголовком
		s.logger.Warn("News event text generation failed, publishing headline only", zap.Error(err))
		body = ""
	}

	if judgment.ApprovalShift != 0 {
		cohorts, err := s.cohortRepo.ListBySession(ctx, s.db, session.ID)
		if err != nil {
			return fmt.Errorf("failed to list cohorts for news event: %w", err)
		}
		for _, figure := range figures {
			for _, cohort := range cohorts {
				if _, err := s.reputationSvc.ApplyReputationChange(ctx, session.ID, figure.PlayerID, cohort.ID,
					judgment.ApprovalShift, SourceNewsEvent, strconv.Itoa(year), turn); err != nil {
					return fmt.Errorf("failed to apply news event shift to figure %s: %w", figure.PlayerID, err)
				}
			}
		}
	}

	if err := s.newsPublisher.PublishNewsEvent(ctx, messaging.NewsEventPayload{
		SessionID:      session.ID,
		Turn:           turn,
		Year:           year,
		Headline:       judgment.Headline,
		Body:           body,
		ApprovalShift:  judgment.ApprovalShift,
		StabilityShift: judgment.StabilityShift,
	}); err != nil {
		// Репутация уже сдвинута, потеря нотификации не откатывает год
		s.logger.Warn("Failed to publish news event", zap.Error(err))
	}

	s.logger.Info("Annual news event applied",
		zap.Int("year", year),
		zap.String("headline", judgment.Headline),
		zap.Float64("approvalShift", judgment.ApprovalShift),
		zap.Int("figures", len(figures)))
	return nil
}

// processImmigration спрашивает у AI-коллаборатора масштаб миграции и
// сдвигает население из сельских когорт в городские той же провинции.
// Суммарное население провинции при этом не меняется.
func (s *turnService) processImmigration(ctx context.Context, session *models.GameSession, year, turn int) error {
	cohorts, err := s.cohortRepo.ListBySession(ctx, s.db, session.ID)
	if err != nil {
		return err
	}

	var ruralPop, urbanPop int64
	for _, cohort := range cohorts {
		switch cohort.SettlementType {
		case models.SettlementRural:
			ruralPop += cohort.Population
		case models.SettlementUrban:
			urbanPop += cohort.Population
		}
	}
	if ruralPop == 0 {
		return nil
	}

	judgment, err := s.textGen.JudgeEvent(ctx, clients.EventContext{
		EventType:   "annual_immigration",
		Severity:    "routine",
		SessionYear: year,
		Indicators: map[string]float64{
			"rural_population": float64(ruralPop),
			"urban_population": float64(urbanPop),
		},
	})
	if err != nil {
		return err
	}
	if judgment.ImmigrationShift <= 0 {
		return nil
	}

	moved, err := s.shiftRuralToUrban(ctx, session.ID, cohorts, judgment.ImmigrationShift)
	if err != nil {
		return err
	}
	s.logger.Info("Annual immigration applied",
		zap.Int("year", year),
		zap.Float64("shift", judgment.ImmigrationShift),
		zap.Int64("moved", moved))
	return nil
}

// shiftRuralToUrban переносит долю shift населения каждой сельской когорты
// в городские когорты ее провинции (пропорционально их размеру; остаток
// от деления уходит крупнейшей). Провинция без городских когорт не
// участвует. Кэш состава затронутых провинций сбрасывается.
func (s *turnService) shiftRuralToUrban(ctx context.Context, sessionID uuid.UUID, cohorts []*models.Cohort, shift float64) (int64, error) {
	urbanByProvince := make(map[string][]*models.Cohort)
	for _, cohort := range cohorts {
		if cohort.SettlementType == models.SettlementUrban {
			urbanByProvince[cohort.ProvinceID] = append(urbanByProvince[cohort.ProvinceID], cohort)
		}
	}

	var movedTotal int64
	touched := make(map[string]struct{})
	err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		for _, rural := range cohorts {
			if rural.SettlementType != models.SettlementRural || rural.Population <= 0 {
				continue
			}
			urban := urbanByProvince[rural.ProvinceID]
			if len(urban) == 0 {
				continue
			}
			moving := int64(float64(rural.Population) * shift)
			if moving <= 0 {
				continue
			}

			if err := s.cohortRepo.UpdatePopulation(ctx, tx, rural.ID, rural.Population-moving); err != nil {
				return err
			}
			rural.Population -= moving

			if err := s.distributeToUrban(ctx, tx, urban, moving); err != nil {
				return err
			}
			movedTotal += moving
			touched[rural.ProvinceID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to apply immigration shift: %w", err)
	}

	for provinceID := range touched {
		if err := s.provinceCache.Invalidate(ctx, sessionID, provinceID); err != nil {
			s.logger.Warn("Failed to invalidate province cache after migration",
				zap.String("provinceID", provinceID), zap.Error(err))
		}
	}
	return movedTotal, nil
}

func (s *turnService) distributeToUrban(ctx context.Context, tx repository.DBTX, urban []*models.Cohort, moving int64) error {
	var urbanTotal int64
	for _, cohort := range urban {
		urbanTotal += cohort.Population
	}

	// Стабильный порядок: крупнейшая когорта первой, ей же достается остаток
	sorted := make([]*models.Cohort, len(urban))
	copy(sorted, urban)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Population != sorted[j].Population {
			return sorted[i].Population > sorted[j].Population
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	remaining := moving
	for _, cohort := range sorted {
		var share int64
		if urbanTotal > 0 {
			share = moving * cohort.Population / urbanTotal
		} else {
			share = moving / int64(len(sorted))
		}
		if share > remaining {
			share = remaining
		}
		if share > 0 {
			if err := s.cohortRepo.UpdatePopulation(ctx, tx, cohort.ID, cohort.Population+share); err != nil {
				return err
			}
			cohort.Population += share
			remaining -= share
		}
	}
	// Округление вниз могло не раздать все, остаток уходит крупнейшей
	if remaining > 0 {
		top := sorted[0]
		if err := s.cohortRepo.UpdatePopulation(ctx, tx, top.ID, top.Population+remaining); err != nil {
			return err
		}
		top.Population += remaining
	}
	return nil
}
