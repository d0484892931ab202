package models

import "math"

const (
	// AxisMin/AxisMax — границы каждой оси куба и каждого вопроса.
	AxisMin = -10.0
	AxisMax = 10.0

	// MaxCubeDistance — диагональ куба 20x20x20, sqrt(1200) ≈ 34.64.
	// Используется для нормализации 3-D дистанции в cube match.
	MaxCubeDistance = 34.64101615137755
)

// ClampAxis зажимает значение оси/вопроса в [-10, 10].
func ClampAxis(v float64) float64 {
	if v < AxisMin {
		return AxisMin
	}
	if v > AxisMax {
		return AxisMax
	}
	return v
}

// CubePosition — упрощенная идеологическая координата по трем осям.
// economic: социалист ↔ капиталист, authority: анархист ↔ авторитарист,
// social: прогрессист ↔ консерватор.
type CubePosition struct {
	Economic  float64 `json:"economic" db:"cube_economic"`
	Authority float64 `json:"authority" db:"cube_authority"`
	Social    float64 `json:"social" db:"cube_social"`
}

// Clamp возвращает позицию с осями, зажатыми в допустимые границы.
func (p CubePosition) Clamp() CubePosition {
	return CubePosition{
		Economic:  ClampAxis(p.Economic),
		Authority: ClampAxis(p.Authority),
		Social:    ClampAxis(p.Social),
	}
}

// DistanceTo — евклидова дистанция до другой позиции куба.
func (p CubePosition) DistanceTo(other CubePosition) float64 {
	de := p.Economic - other.Economic
	da := p.Authority - other.Authority
	ds := p.Social - other.Social
	return math.Sqrt(de*de + da*da + ds*ds)
}

// PoliticalPosition — полная политическая позиция когорты, игрока или политики.
// Карты Issues и Salience всегда содержат ровно полный каталог из 34 ключей
// (обеспечивается NewPoliticalPosition и нормализацией при загрузке).
type PoliticalPosition struct {
	Cube     CubePosition         `json:"cube"`
	Issues   map[IssueKey]float64 `json:"issues"`
	Salience map[IssueKey]float64 `json:"salience"`
}

// NewPoliticalPosition строит нормализованную позицию из сырых данных
// генерации: куб зажимается, карты дополняются до полного каталога,
// важность масштабируется до лимита суммы.
func NewPoliticalPosition(cube CubePosition, issues, salience map[IssueKey]float64) PoliticalPosition {
	return PoliticalPosition{
		Cube:     cube.Clamp(),
		Issues:   NormalizeIssuePositions(issues),
		Salience: NormalizeSalience(salience),
	}
}

// SalienceTotal — суммарная важность всех вопросов.
func (p PoliticalPosition) SalienceTotal() float64 {
	total := 0.0
	for _, v := range p.Salience {
		total += v
	}
	return total
}
