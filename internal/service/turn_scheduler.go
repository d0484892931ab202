package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// retryDelay — пауза перед повторным взводом таймера после неудачного
// прохода конца хода.
const retryDelay = 15 * time.Minute

// TurnScheduler владеет реестром таймеров сессий. У каждой сессии не более
// одного взведенного таймера; повторное взведение всегда сначала снимает
// предыдущий, иначе дублирующиеся таймеры приведут к двойному продвижению
// хода.
type TurnScheduler struct {
	turnSvc TurnService
	logger  *zap.Logger

	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	shutdown bool
}

// NewTurnScheduler создает реестр таймеров.
func NewTurnScheduler(turnSvc TurnService, logger *zap.Logger) *TurnScheduler {
	return &TurnScheduler{
		turnSvc: turnSvc,
		logger:  logger.Named("TurnScheduler"),
		timers:  make(map[uuid.UUID]*time.Timer),
	}
}

// Schedule взводит таймер конца хода сессии на момент endsAt.
// Уже взведенный таймер сессии снимается. Прошедший endsAt означает, что
// сервис перезапустился после дедлайна хода: срабатываем почти сразу.
func (s *TurnScheduler) Schedule(sessionID uuid.UUID, endsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrSchedulerShutdown
	}

	if timer, ok := s.timers[sessionID]; ok {
		timer.Stop()
	}

	delay := time.Until(endsAt)
	if delay < time.Second {
		delay = time.Second
	}
	s.timers[sessionID] = time.AfterFunc(delay, func() {
		s.fire(sessionID)
	})
	s.logger.Info("Turn timer scheduled",
		zap.String("sessionID", sessionID.String()),
		zap.Duration("in", delay))
	return nil
}

// Cancel снимает таймер сессии (завершение сессии, ручное вмешательство).
func (s *TurnScheduler) Cancel(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[sessionID]; ok {
		timer.Stop()
		delete(s.timers, sessionID)
		s.logger.Info("Turn timer cancelled", zap.String("sessionID", sessionID.String()))
	}
}

// Shutdown снимает все таймеры и запрещает новые взводы.
func (s *TurnScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	for sessionID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, sessionID)
	}
	s.logger.Info("Turn scheduler shut down")
}

func (s *TurnScheduler) fire(sessionID uuid.UUID) {
	ctx := context.Background()
	session, err := s.turnSvc.ProcessTurnEnd(ctx, sessionID)
	if err != nil {
		// Сессия уже возвращена в active оркестратором; даем операторам
		// окно на вмешательство и пробуем снова
		s.logger.Error("Scheduled turn processing failed, will retry",
			zap.String("sessionID", sessionID.String()),
			zap.Duration("retryIn", retryDelay),
			zap.Error(err))
		if schedErr := s.Schedule(sessionID, time.Now().Add(retryDelay)); schedErr != nil {
			s.logger.Warn("Retry not scheduled", zap.Error(schedErr))
		}
		return
	}
	if session.Status == models.SessionStatusEnded {
		s.Cancel(sessionID)
		return
	}
	if err := s.Schedule(sessionID, session.TurnEndsAt); err != nil {
		s.logger.Warn("Next turn not scheduled", zap.Error(err))
	}
}
