package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
)

// CohortSeed — сырые данные одной когорты из генератора мира.
// Карты позиций могут быть частичными: нормализация дополнит каталог
// и отмасштабирует важность при создании.
type CohortSeed struct {
	SocialClass     models.SocialClass
	Occupation      string
	Gender          string
	PropertyStatus  models.PropertyStatus
	Ethnicity       string
	Religion        string
	IsIndigenous    bool
	IsMixedHeritage bool
	ProvinceID      string
	SettlementType  models.SettlementType
	Population      int64
	CanVote         bool

	Cube     models.CubePosition
	Issues   map[models.IssueKey]float64
	Salience map[models.IssueKey]float64
}

// SeedSessionRequest — полное описание новой сессии.
type SeedSessionRequest struct {
	GameDate  time.Time
	Cohorts   []CohortSeed
	PlayerIDs []uuid.UUID
}

// SetupService создает сессию с демографией и предзасеянной репутацией.
//
//go:generate mockery --name SetupService --output ./mocks --outpkg mocks --case=underscore
type SetupService interface {
	// SeedSession создает сессию, ее когорты и записи репутации каждого
	// игрока против каждой когорты (массовый посев стартует с 50,
	// в отличие от ленивых 40). Все в одной транзакции.
	SeedSession(ctx context.Context, req SeedSessionRequest) (*models.GameSession, error)
}

type setupService struct {
	txRunner     repository.TxRunner
	sessionRepo  repository.SessionRepository
	cohortRepo   repository.CohortRepository
	repRepo      repository.ReputationRepository
	turnDuration time.Duration
	logger       *zap.Logger
}

// NewSetupService создает сервис генерации сессий.
func NewSetupService(
	txRunner repository.TxRunner,
	sessionRepo repository.SessionRepository,
	cohortRepo repository.CohortRepository,
	repRepo repository.ReputationRepository,
	turnDuration time.Duration,
	logger *zap.Logger,
) SetupService {
	return &setupService{
		txRunner:     txRunner,
		sessionRepo:  sessionRepo,
		cohortRepo:   cohortRepo,
		repRepo:      repRepo,
		turnDuration: turnDuration,
		logger:       logger.Named("SetupService"),
	}
}

func (s *setupService) SeedSession(ctx context.Context, req SeedSessionRequest) (*models.GameSession, error) {
	if len(req.Cohorts) == 0 {
		return nil, fmt.Errorf("%w: session requires at least one cohort", models.ErrInvalidInput)
	}
	for i, seed := range req.Cohorts {
		if seed.Population < 0 {
			return nil, fmt.Errorf("%w: cohort %d has negative population", models.ErrInvalidInput, i)
		}
	}

	now := time.Now().UTC()
	session := &models.GameSession{
		ID:            uuid.New(),
		Status:        models.SessionStatusActive,
		CurrentTurn:   1,
		GameDate:      req.GameDate,
		TurnStartedAt: now,
		TurnEndsAt:    now.Add(s.turnDuration),
	}

	err := s.txRunner.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := s.sessionRepo.Create(ctx, tx, session); err != nil {
			return err
		}

		cohortIDs := make([]uuid.UUID, 0, len(req.Cohorts))
		for _, seed := range req.Cohorts {
			cohort := &models.Cohort{
				ID:              uuid.New(),
				SessionID:       session.ID,
				SocialClass:     seed.SocialClass,
				Occupation:      seed.Occupation,
				Gender:          seed.Gender,
				PropertyStatus:  seed.PropertyStatus,
				Ethnicity:       seed.Ethnicity,
				Religion:        seed.Religion,
				IsIndigenous:    seed.IsIndigenous,
				IsMixedHeritage: seed.IsMixedHeritage,
				ProvinceID:      seed.ProvinceID,
				SettlementType:  seed.SettlementType,
				Population:      seed.Population,
				CanVote:         seed.CanVote,
				DefaultPosition: models.NewPoliticalPosition(seed.Cube, seed.Issues, seed.Salience),
			}
			if err := s.cohortRepo.Create(ctx, tx, cohort); err != nil {
				return fmt.Errorf("failed to create cohort: %w", err)
			}
			cohortIDs = append(cohortIDs, cohort.ID)
		}

		for _, playerID := range req.PlayerIDs {
			for _, cohortID := range cohortIDs {
				rec := models.NewSeededReputationRecord(session.ID, playerID, cohortID)
				if err := s.repRepo.Upsert(ctx, tx, rec); err != nil {
					return fmt.Errorf("failed to seed reputation record: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session seeded",
		zap.String("sessionID", session.ID.String()),
		zap.Int("cohorts", len(req.Cohorts)),
		zap.Int("players", len(req.PlayerIDs)))
	return session, nil
}
