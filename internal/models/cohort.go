package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialClass определяет социальный класс когорты.
type SocialClass string

const (
	ClassUpper  SocialClass = "upper"
	ClassMiddle SocialClass = "middle"
	ClassLower  SocialClass = "lower"
	ClassOther  SocialClass = "other"
)

// PropertyStatus определяет отношение когорты к собственности.
type PropertyStatus string

const (
	PropertyLandowner PropertyStatus = "landowner"
	PropertyTenant    PropertyStatus = "tenant"
	PropertyNone      PropertyStatus = "none"
)

// SettlementType определяет тип поселения когорты.
type SettlementType string

const (
	SettlementUrban SettlementType = "urban"
	SettlementRural SettlementType = "rural"
)

// Cohort представляет демографический срез населения, достаточно однородный,
// чтобы разделять один профиль политической реакции. Это не отдельный агент.
// Создается массово при генерации сессии; население и позиция могут
// корректироваться миграцией, но запись не удаляется в течение игры.
type Cohort struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`

	// Экономический фасет
	SocialClass    SocialClass    `json:"social_class" db:"social_class"`
	Occupation     string         `json:"occupation" db:"occupation"`
	Gender         string         `json:"gender" db:"gender"`
	PropertyStatus PropertyStatus `json:"property_status" db:"property_status"`

	// Культурный фасет
	Ethnicity       string `json:"ethnicity" db:"ethnicity"`
	Religion        string `json:"religion" db:"religion"`
	IsIndigenous    bool   `json:"is_indigenous" db:"is_indigenous"`
	IsMixedHeritage bool   `json:"is_mixed_heritage" db:"is_mixed_heritage"`

	// Локационный фасет
	ProvinceID     string         `json:"province_id" db:"province_id"`
	SettlementType SettlementType `json:"settlement_type" db:"settlement_type"`

	// Население всегда >= 0.
	Population int64 `json:"population" db:"population"`

	// CanVote выводится один раз при генерации из остальных фасетов
	// и после создания никогда не меняется.
	CanVote bool `json:"can_vote" db:"can_vote"`

	// DefaultPosition — базовая политическая позиция когорты.
	DefaultPosition PoliticalPosition `json:"default_position" db:"default_position"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
