package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus определяет стадии кампании.
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign — кампания игрока, нацеленная на когорту.
// Инвариант: буст применяется ровно один раз, на ходу EndTurn, после чего
// кампания необратимо переходит в completed.
type Campaign struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	PlayerID  uuid.UUID `json:"player_id" db:"player_id"`
	CohortID  uuid.UUID `json:"cohort_id" db:"cohort_id"`

	StartTurn     int `json:"start_turn" db:"start_turn"`
	DurationTurns int `json:"duration_turns" db:"duration_turns"`
	// EndTurn = StartTurn + DurationTurns, денормализован для выборки по ходу.
	EndTurn int `json:"end_turn" db:"end_turn"`

	Boost  float64        `json:"boost" db:"boost"`
	Status CampaignStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewCampaign строит активную кампанию с вычисленным EndTurn.
func NewCampaign(sessionID, playerID, cohortID uuid.UUID, startTurn, duration int, boost float64) *Campaign {
	now := time.Now().UTC()
	return &Campaign{
		ID:            uuid.New(),
		SessionID:     sessionID,
		PlayerID:      playerID,
		CohortID:      cohortID,
		StartTurn:     startTurn,
		DurationTurns: duration,
		EndTurn:       startTurn + duration,
		Boost:         boost,
		Status:        CampaignStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
