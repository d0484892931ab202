package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// ReputationHistoryLimit — жесткий предел длины истории записи.
	// Старые записи отбрасываются, не архивируются: это осознанная
	// политика ограничения памяти, а не lossless-логирование.
	ReputationHistoryLimit = 50

	// ReputationBaseline — базовый уровень, к которому затухает одобрение.
	ReputationBaseline = 40.0

	// ReputationLazyDefault — одобрение при ленивом создании записи:
	// впервые встреченная когорта начинает с легкого недоверия.
	ReputationLazyDefault = 40.0

	// ReputationSeedDefault — одобрение при массовой инициализации сессии:
	// предзасеянные когорты начинают нейтрально.
	ReputationSeedDefault = 50.0

	// ReputationMin/Max — границы шкалы. Шкала однонаправленного доверия,
	// не биполярного сентимента.
	ReputationMin = 0.0
	ReputationMax = 100.0
)

// ClampApproval зажимает одобрение в [0, 100].
func ClampApproval(v float64) float64 {
	if v < ReputationMin {
		return ReputationMin
	}
	if v > ReputationMax {
		return ReputationMax
	}
	return v
}

// ReputationChange — одна запись ограниченной истории изменений.
type ReputationChange struct {
	Turn     int     `json:"turn"`
	Approval float64 `json:"approval"`
	Delta    float64 `json:"delta"`
	Reason   string  `json:"reason"`
}

// ReputationRecord — запись репутации пары (игрок, когорта).
// Единица атомарности: конкурентные дельты к одной записи применяются
// строго последовательным read-modify-write, кросс-записных транзакций нет.
type ReputationRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	PlayerID  uuid.UUID `json:"player_id" db:"player_id"`
	CohortID  uuid.UUID `json:"cohort_id" db:"cohort_id"`

	Approval float64 `json:"approval" db:"approval"`

	// History — append-only, ограничена ReputationHistoryLimit последними
	// записями. Хранится как JSONB.
	History []ReputationChange `json:"history" db:"history"`

	UpdatedTurn int       `json:"updated_turn" db:"updated_turn"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewDefaultReputationRecord — чистый конструктор записи для ленивого
// get-or-create пути хранилища. Вынесен отдельно, чтобы тесты могли
// проверять дефолты, не трогая персистентность.
func NewDefaultReputationRecord(sessionID, playerID, cohortID uuid.UUID) *ReputationRecord {
	return &ReputationRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		PlayerID:  playerID,
		CohortID:  cohortID,
		Approval:  ReputationLazyDefault,
		History:   nil,
		UpdatedAt: time.Now().UTC(),
	}
}

// NewSeededReputationRecord — конструктор для массовой инициализации сессии.
func NewSeededReputationRecord(sessionID, playerID, cohortID uuid.UUID) *ReputationRecord {
	rec := NewDefaultReputationRecord(sessionID, playerID, cohortID)
	rec.Approval = ReputationSeedDefault
	return rec
}

// AppendHistory добавляет запись в историю и усекает ее до лимита,
// отбрасывая самые старые записи.
func (r *ReputationRecord) AppendHistory(change ReputationChange) {
	r.History = append(r.History, change)
	r.TrimHistory()
}

// TrimHistory усекает историю до ReputationHistoryLimit последних записей.
// Вызывается и при каждом apply, и сервисным компактором раз в 3 хода.
func (r *ReputationRecord) TrimHistory() {
	if len(r.History) > ReputationHistoryLimit {
		r.History = r.History[len(r.History)-ReputationHistoryLimit:]
	}
}
