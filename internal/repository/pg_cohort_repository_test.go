package repository

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// stubRow подставляет заготовленные значения в Scan вместо живой строки pgx.
type stubRow struct {
	vals []any
}

func (r stubRow) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

func cohortRow(t *testing.T, position models.PoliticalPosition) stubRow {
	t.Helper()
	positionJSON, err := json.Marshal(position)
	require.NoError(t, err)
	now := time.Now().UTC()
	return stubRow{vals: []any{
		uuid.New(), uuid.New(),
		models.ClassLower, "farmer", "male", models.PropertyTenant,
		"criollo", "catholic", false, false,
		"prov-a", models.SettlementRural, int64(1000), true,
		positionJSON, now, now,
	}}
}

func TestScanCohort_NormalizesStoredPosition(t *testing.T) {
	t.Run("partial salience map gets baseline, not zero", func(t *testing.T) {
		// Хранимая карта важности покрывает один вопрос из каталога:
		// остальные при чтении получают базовую важность, не 0
		cohort, err := scanCohort(cohortRow(t, models.PoliticalPosition{
			Cube:     models.CubePosition{Economic: 3},
			Issues:   map[models.IssueKey]float64{models.IssueTaxation: 5},
			Salience: map[models.IssueKey]float64{models.IssueTaxation: 0.9},
		}))
		require.NoError(t, err)

		assert.Len(t, cohort.DefaultPosition.Issues, models.IssueCount)
		assert.Len(t, cohort.DefaultPosition.Salience, models.IssueCount)
		assert.Equal(t, 0.9, cohort.DefaultPosition.Salience[models.IssueTaxation])
		assert.Equal(t, models.DefaultIssueSalience, cohort.DefaultPosition.Salience[models.IssueRailways])
		assert.Equal(t, 0.0, cohort.DefaultPosition.Issues[models.IssueRailways])
	})

	t.Run("nil maps are filled from the catalog", func(t *testing.T) {
		cohort, err := scanCohort(cohortRow(t, models.PoliticalPosition{}))
		require.NoError(t, err)

		assert.Len(t, cohort.DefaultPosition.Issues, models.IssueCount)
		assert.Len(t, cohort.DefaultPosition.Salience, models.IssueCount)
		assert.Equal(t, models.DefaultIssueSalience, cohort.DefaultPosition.Salience[models.IssueTaxation])
	})

	t.Run("complete map passes through unchanged", func(t *testing.T) {
		full := models.NewPoliticalPosition(
			models.CubePosition{Social: -4},
			map[models.IssueKey]float64{models.IssueRailways: 7},
			map[models.IssueKey]float64{models.IssueRailways: 0.6},
		)
		cohort, err := scanCohort(cohortRow(t, full))
		require.NoError(t, err)

		assert.Equal(t, full.Issues, cohort.DefaultPosition.Issues)
		assert.Equal(t, full.Salience, cohort.DefaultPosition.Salience)
	})
}
