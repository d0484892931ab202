package models

import (
	"time"

	"github.com/google/uuid"
)

// PolicyStatus определяет стадии жизненного цикла политики.
// Переходы: proposed -> enacted -> superseded (терминальная).
type PolicyStatus string

const (
	PolicyStatusProposed   PolicyStatus = "proposed"
	PolicyStatusEnacted    PolicyStatus = "enacted"
	PolicyStatusSuperseded PolicyStatus = "superseded"
)

// CategoryMode определяет режим категории политик.
type CategoryMode string

const (
	// CategoryExclusive — максимум одна действующая политика в категории.
	CategoryExclusive CategoryMode = "exclusive"
	// CategoryStacking — неограниченное число одновременных политик.
	CategoryStacking CategoryMode = "stacking"
)

// policyCategoryModes — фиксированный каталог категорий.
// Неизвестные категории трактуются как exclusive: безопаснее случайно
// вытеснить политику, чем случайно допустить две взаимоисключающие.
var policyCategoryModes = map[string]CategoryMode{
	"tax_income":       CategoryExclusive,
	"tax_land":         CategoryExclusive,
	"tax_trade":        CategoryExclusive,
	"trade_policy":     CategoryExclusive,
	"labor_law":        CategoryExclusive,
	"land_policy":      CategoryExclusive,
	"suffrage_law":     CategoryExclusive,
	"education_policy": CategoryExclusive,
	"military_policy":  CategoryExclusive,
	"banking_policy":   CategoryExclusive,
	"religious_policy": CategoryExclusive,
	"immigration_law":  CategoryExclusive,

	"public_works": CategoryStacking,
	"subsidy":      CategoryStacking,
	"special_event": CategoryStacking,
}

// CategoryModeFor возвращает режим категории из каталога.
func CategoryModeFor(category string) CategoryMode {
	if mode, ok := policyCategoryModes[category]; ok {
		return mode
	}
	return CategoryExclusive
}

// DelayedEffect — отложенный числовой эффект политики: на ходу ApplyTurn
// применяется Magnitude указанного вида.
type DelayedEffect struct {
	ApplyTurn int     `json:"apply_turn"`
	Kind      string  `json:"kind"`
	Magnitude float64 `json:"magnitude"`
}

// Policy — запись политики.
// Инвариант: не более одной политики со статусом enacted на exclusive-категорию
// в рамках сессии; обеспечивается транзакционно при принятии, а не
// периодической чисткой.
type Policy struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SessionID  uuid.UUID `json:"session_id" db:"session_id"`
	ProposerID uuid.UUID `json:"proposer_id" db:"proposer_id"`

	Category string       `json:"category" db:"category"`
	Status   PolicyStatus `json:"status" db:"status"`
	Title    string       `json:"title" db:"title"`

	// VotePassed выставляется внешним слоем голосования; проход принятия
	// в конце хода принимает только политики с этим флагом.
	VotePassed bool `json:"vote_passed" db:"vote_passed"`

	// Позиция политики: куб плюс подмножество каталога вопросов,
	// о которых политика вообще высказывается.
	Cube           CubePosition         `json:"cube"`
	IssuePositions map[IssueKey]float64 `json:"issue_positions" db:"issue_positions"`

	// Активные числовые эффекты.
	EconomicImpact  float64        `json:"economic_impact" db:"economic_impact"`
	StabilityImpact float64        `json:"stability_impact" db:"stability_impact"`
	DelayedEffect   *DelayedEffect `json:"delayed_effect,omitempty" db:"delayed_effect"`

	// Shadow-поля: при вытеснении или событийном удалении эффекты
	// переносятся сюда, активные поля обнуляются. Исторические данные
	// сохраняются, а не удаляются.
	SupersededEconomicImpact  *float64       `json:"superseded_economic_impact,omitempty" db:"superseded_economic_impact"`
	SupersededStabilityImpact *float64       `json:"superseded_stability_impact,omitempty" db:"superseded_stability_impact"`
	CancelledDelayedEffect    *DelayedEffect `json:"cancelled_delayed_effect,omitempty" db:"cancelled_delayed_effect"`

	// Связи вытеснения.
	Supersedes   []uuid.UUID `json:"supersedes,omitempty" db:"supersedes"`
	SupersededBy *uuid.UUID  `json:"superseded_by,omitempty" db:"superseded_by"`

	// Причина событийного удаления (путь в обход supersededBy).
	DeletedByEvent *string `json:"deleted_by_event,omitempty" db:"deleted_by_event"`

	ProposedTurn int  `json:"proposed_turn" db:"proposed_turn"`
	EnactedTurn  *int `json:"enacted_turn,omitempty" db:"enacted_turn"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasPendingDelayedEffect сообщает, есть ли у политики отложенный эффект,
// чей ход применения еще не наступил.
func (p *Policy) HasPendingDelayedEffect(currentTurn int) bool {
	return p.DelayedEffect != nil && p.DelayedEffect.ApplyTurn > currentTurn
}
