package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate — кандидат на выборах: идеологическая позиция, накопленное
// финансирование и число полученных эндорсментов.
type Candidate struct {
	PlayerID     uuid.UUID    `json:"player_id"`
	Name         string       `json:"name"`
	Position     CubePosition `json:"position"`
	Funding      float64      `json:"funding"`
	Endorsements int          `json:"endorsements"`
}

// CandidateResult — итог кандидата в одной провинции.
type CandidateResult struct {
	PlayerID uuid.UUID `json:"player_id"`
	Votes    int64     `json:"votes"`
}

// ElectionResult — результат симуляции выборов в провинции.
type ElectionResult struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	SessionID  uuid.UUID         `json:"session_id" db:"session_id"`
	ProvinceID string            `json:"province_id" db:"province_id"`
	Turn       int               `json:"turn" db:"turn"`
	Tally      []CandidateResult `json:"tally" db:"tally"`
	TotalVotes int64             `json:"total_votes" db:"total_votes"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}
