package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus определяет состояние игровой сессии.
// Цикл: active -> processing -> active, повторяется до конца сессии.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusEnded      SessionStatus = "ended"
)

const (
	// GameDaysPerTurn — фиксированное игровое время одного хода.
	GameDaysPerTurn = 36
)

// GameSession — одна игровая сессия. Независимые сессии могут идти
// параллельно и не разделяют изменяемое состояние.
type GameSession struct {
	ID     uuid.UUID     `json:"id" db:"id"`
	Status SessionStatus `json:"status" db:"status"`

	CurrentTurn int `json:"current_turn" db:"current_turn"`

	// GameDate — текущая внутриигровая дата; продвигается на 36 дней за ход.
	GameDate time.Time `json:"game_date" db:"game_date"`

	// Метки реального времени текущего хода.
	TurnStartedAt time.Time `json:"turn_started_at" db:"turn_started_at"`
	TurnEndsAt    time.Time `json:"turn_ends_at" db:"turn_ends_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NextGameDate возвращает внутриигровую дату следующего хода.
func (s *GameSession) NextGameDate() time.Time {
	return s.GameDate.AddDate(0, 0, GameDaysPerTurn)
}

// IsJanuaryBoundary сообщает, пересекает ли переход от from к to границу
// нового года (ежегодная каденция: иммиграция, проверка выборов).
func IsJanuaryBoundary(from, to time.Time) bool {
	return to.Year() > from.Year()
}
