package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VitalPulse/internal/domain/models"
)

func TestBaselineRowRoundTrip(t *testing.T) {
	hi := 180.0
	b := models.Baseline{
		UserID:               "u1",
		MetricType:           models.MetricGlucoseAvg,
		Value:                110,
		StdDev:               12,
		SampleCount:          9,
		WindowDays:           14,
		AlertThresholdPct:    15,
		CriticalThresholdPct: 30,
		NormalRangeMax:       &hi,
		TrendDirection:       models.TrendDeclining,
		TrendDurationDays:    2,
		LastUpdated:          time.Date(2026, 5, 2, 9, 30, 0, 0, time.FixedZone("X", 3600)),
		Version:              3,
	}

	row := toBaselineRow(b)
	assert.False(t, row.NormalRangeMin.Valid)
	assert.True(t, row.NormalRangeMax.Valid)
	assert.Equal(t, time.UTC, row.LastUpdated.Location())

	out := row.toModel()
	assert.Nil(t, out.NormalRangeMin)
	require.NotNil(t, out.NormalRangeMax)
	assert.Equal(t, 180.0, *out.NormalRangeMax)
	assert.True(t, b.LastUpdated.Equal(out.LastUpdated))
	assert.Equal(t, b.MetricType, out.MetricType)
	assert.Equal(t, b.TrendDirection, out.TrendDirection)
	assert.Equal(t, int64(3), out.Version)

	hi = 200
	assert.Equal(t, 180.0, *out.NormalRangeMax)
}

func newMockPostgresStore(t *testing.T) (*PostgresBaselineStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return &PostgresBaselineStore{db: sqlx.NewDb(db, "postgres")}, mock
}

// baselineArgs matches the 14 column values; the version is checked separately.
func baselineArgs(version int64, extra ...driver.Value) []driver.Value {
	args := make([]driver.Value, 0, 15)
	for i := 0; i < 13; i++ {
		args = append(args, sqlmock.AnyArg())
	}
	args = append(args, version)
	return append(args, extra...)
}

func TestPostgresUpsertStaleVersionConflicts(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := models.Baseline{UserID: "u1", MetricType: models.MetricHRV, Value: 61, SampleCount: 5, Version: 4}

	mock.ExpectExec(`UPDATE health_baselines .* WHERE user_id = \$1 AND metric_type = \$2 AND version = \$15`).
		WithArgs(baselineArgs(5, int64(4))...).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.Upsert(context.Background(), b)
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestPostgresUpsertBumpsVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := models.Baseline{UserID: "u1", MetricType: models.MetricHRV, Value: 61, SampleCount: 5, Version: 4}

	mock.ExpectExec(`UPDATE health_baselines`).
		WithArgs(baselineArgs(5, int64(4))...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := s.Upsert(context.Background(), b)
	require.NoError(t, err)
	assert.EqualValues(t, 5, stored.Version)
	assert.Equal(t, 61.0, stored.Value)
}

func TestPostgresCreateConflicts(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := models.Baseline{UserID: "u1", MetricType: models.MetricSteps, Value: 8000, SampleCount: 1}

	// lost the race: ON CONFLICT DO NOTHING inserts no row
	mock.ExpectExec(`INSERT INTO health_baselines .* ON CONFLICT \(user_id, metric_type\) DO NOTHING`).
		WithArgs(baselineArgs(1)...).
		WillReturnResult(sqlmock.NewResult(0, 0))
	_, err := s.Upsert(context.Background(), b)
	require.ErrorIs(t, err, models.ErrConflict)

	mock.ExpectExec(`INSERT INTO health_baselines`).
		WillReturnError(&pq.Error{Code: "23505"})
	_, err = s.Upsert(context.Background(), b)
	require.ErrorIs(t, err, models.ErrConflict)

	mock.ExpectExec(`INSERT INTO health_baselines`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	stored, err := s.Upsert(context.Background(), b)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Version)
}

func TestPostgresGetMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT .* FROM health_baselines WHERE user_id = \$1 AND metric_type = \$2`).
		WithArgs("u1", "hrv").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	b, err := s.Get(context.Background(), "u1", models.MetricHRV)
	require.NoError(t, err)
	assert.Nil(t, b)
}
