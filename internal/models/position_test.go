package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPoliticalPosition_FullCatalog(t *testing.T) {
	pos := NewPoliticalPosition(
		CubePosition{Economic: 15, Authority: -12, Social: 3},
		map[IssueKey]float64{IssueTaxation: 25, IssueLandReform: -4},
		map[IssueKey]float64{IssueTaxation: 0.9},
	)

	// Куб зажат в границы
	assert.Equal(t, AxisMax, pos.Cube.Economic)
	assert.Equal(t, AxisMin, pos.Cube.Authority)
	assert.Equal(t, 3.0, pos.Cube.Social)

	// Обе карты всегда содержат ровно полный каталог с одинаковыми ключами
	assert.Len(t, pos.Issues, IssueCount)
	assert.Len(t, pos.Salience, IssueCount)
	for _, k := range AllIssues() {
		_, okIssue := pos.Issues[k]
		_, okSalience := pos.Salience[k]
		assert.True(t, okIssue, "issue %s missing", k)
		assert.True(t, okSalience, "salience %s missing", k)
	}

	// Явные значения зажаты, отсутствующие получили дефолты
	assert.Equal(t, AxisMax, pos.Issues[IssueTaxation])
	assert.Equal(t, -4.0, pos.Issues[IssueLandReform])
	assert.Equal(t, 0.0, pos.Issues[IssueRailways])
	assert.Equal(t, 0.9, pos.Salience[IssueTaxation])
	assert.Equal(t, DefaultIssueSalience, pos.Salience[IssueRailways])
}

func TestNormalizeSalience_RescalesOverLimit(t *testing.T) {
	raw := make(map[IssueKey]float64, IssueCount)
	for _, k := range AllIssues() {
		raw[k] = 1.0 // сумма 34 > лимита 10
	}
	out := NormalizeSalience(raw)

	total := 0.0
	for _, v := range out {
		total += v
	}
	assert.InDelta(t, MaxSalienceTotal, total, 1e-9)
	// Пропорции сохранены: все веса равны
	for _, v := range out {
		assert.InDelta(t, MaxSalienceTotal/IssueCount, v, 1e-9)
	}
}

func TestNormalizeSalience_UnderLimitUntouched(t *testing.T) {
	out := NormalizeSalience(map[IssueKey]float64{IssueTaxation: 0.5})
	assert.Equal(t, 0.5, out[IssueTaxation])

	total := 0.0
	for _, v := range out {
		total += v
	}
	assert.LessOrEqual(t, total, MaxSalienceTotal)
}

func TestCubePosition_DistanceTo(t *testing.T) {
	a := CubePosition{Economic: -10, Authority: -10, Social: -10}
	b := CubePosition{Economic: 10, Authority: 10, Social: 10}
	assert.InDelta(t, MaxCubeDistance, a.DistanceTo(b), 1e-9)
	assert.Equal(t, 0.0, a.DistanceTo(a))
	assert.InDelta(t, math.Sqrt(1200), MaxCubeDistance, 1e-9)
}

func TestValidateIssueMap_UnknownKey(t *testing.T) {
	err := ValidateIssueMap(map[IssueKey]float64{"flat_tax": 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.NoError(t, ValidateIssueMap(map[IssueKey]float64{IssueTaxation: 1}))
}
