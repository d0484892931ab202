package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// TurnCompletedPayload уходит в очередь обновлений сессии после успешного
// прохода конца хода. Потребители (gateway, клиентские нотификации) строят
// по нему push/websocket-сообщения.
type TurnCompletedPayload struct {
	SessionID        uuid.UUID `json:"session_id"`
	Turn             int       `json:"turn"`
	GameDate         time.Time `json:"game_date"`
	TurnEndsAt       time.Time `json:"turn_ends_at"`
	PoliciesEnacted  int       `json:"policies_enacted"`
	CampaignsApplied int       `json:"campaigns_applied"`
	DecayedRecords   int       `json:"decayed_records"`
}

// ElectionCompletedPayload уходит в очередь результатов выборов по каждой
// просимулированной провинции.
type ElectionCompletedPayload struct {
	SessionID  uuid.UUID                `json:"session_id"`
	ProvinceID string                   `json:"province_id"`
	Turn       int                      `json:"turn"`
	Tally      []models.CandidateResult `json:"tally"`
	TotalVotes int64                    `json:"total_votes"`
}

// NewsEventPayload уходит в очередь новостных событий. Заголовок и числа
// берутся из вердикта AI-коллаборатора, текст — из генератора нарратива.
// StabilityShift движок не применяет сам: индикаторами стабильности владеет
// внешний игровой слой, payload несет дельту ему.
type NewsEventPayload struct {
	SessionID      uuid.UUID `json:"session_id"`
	Turn           int       `json:"turn"`
	Year           int       `json:"year"`
	Headline       string    `json:"headline"`
	Body           string    `json:"body,omitempty"`
	ApprovalShift  float64   `json:"approval_shift"`
	StabilityShift float64   `json:"stability_shift"`
}
