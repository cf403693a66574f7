package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	pkgpg "VitalPulse/pkg/postgres"
)

var _ repository.BaselineRepository = (*PostgresBaselineStore)(nil)

// PostgresSchema creates the baselines table.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS health_baselines (
		user_id                TEXT             NOT NULL,
		metric_type            TEXT             NOT NULL,
		value                  DOUBLE PRECISION NOT NULL,
		std_dev                DOUBLE PRECISION NOT NULL,
		sample_count           INTEGER          NOT NULL,
		window_days            INTEGER          NOT NULL,
		alert_threshold_pct    DOUBLE PRECISION NOT NULL,
		critical_threshold_pct DOUBLE PRECISION NOT NULL,
		normal_range_min       DOUBLE PRECISION,
		normal_range_max       DOUBLE PRECISION,
		trend_direction        TEXT             NOT NULL,
		trend_duration_days    INTEGER          NOT NULL,
		last_updated           TIMESTAMPTZ      NOT NULL,
		version                BIGINT           NOT NULL,
		PRIMARY KEY (user_id, metric_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_health_baselines_updated ON health_baselines (last_updated)`,
}

const baselineColumns = `user_id, metric_type, value, std_dev, sample_count, window_days,
	alert_threshold_pct, critical_threshold_pct, normal_range_min, normal_range_max,
	trend_direction, trend_duration_days, last_updated, version`

type baselineRow struct {
	UserID               string          `db:"user_id"`
	MetricType           string          `db:"metric_type"`
	Value                float64         `db:"value"`
	StdDev               float64         `db:"std_dev"`
	SampleCount          int             `db:"sample_count"`
	WindowDays           int             `db:"window_days"`
	AlertThresholdPct    float64         `db:"alert_threshold_pct"`
	CriticalThresholdPct float64         `db:"critical_threshold_pct"`
	NormalRangeMin       sql.NullFloat64 `db:"normal_range_min"`
	NormalRangeMax       sql.NullFloat64 `db:"normal_range_max"`
	TrendDirection       string          `db:"trend_direction"`
	TrendDurationDays    int             `db:"trend_duration_days"`
	LastUpdated          time.Time       `db:"last_updated"`
	Version              int64           `db:"version"`
}

func toBaselineRow(b models.Baseline) baselineRow {
	return baselineRow{
		UserID:               b.UserID,
		MetricType:           string(b.MetricType),
		Value:                b.Value,
		StdDev:               b.StdDev,
		SampleCount:          b.SampleCount,
		WindowDays:           b.WindowDays,
		AlertThresholdPct:    b.AlertThresholdPct,
		CriticalThresholdPct: b.CriticalThresholdPct,
		NormalRangeMin:       nullFloat(b.NormalRangeMin),
		NormalRangeMax:       nullFloat(b.NormalRangeMax),
		TrendDirection:       string(b.TrendDirection),
		TrendDurationDays:    b.TrendDurationDays,
		LastUpdated:          b.LastUpdated.UTC(),
		Version:              b.Version,
	}
}

func (r baselineRow) toModel() models.Baseline {
	return models.Baseline{
		UserID:               r.UserID,
		MetricType:           models.MetricType(r.MetricType),
		Value:                r.Value,
		StdDev:               r.StdDev,
		SampleCount:          r.SampleCount,
		WindowDays:           r.WindowDays,
		AlertThresholdPct:    r.AlertThresholdPct,
		CriticalThresholdPct: r.CriticalThresholdPct,
		NormalRangeMin:       floatPtr(r.NormalRangeMin),
		NormalRangeMax:       floatPtr(r.NormalRangeMax),
		TrendDirection:       models.TrendDirection(r.TrendDirection),
		TrendDurationDays:    r.TrendDurationDays,
		LastUpdated:          r.LastUpdated,
		Version:              r.Version,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// PostgresBaselineStore persists baselines in health_baselines. The version
// column is the CAS token: creation relies on the primary key, updates on a
// version predicate.
type PostgresBaselineStore struct {
	db *sqlx.DB
}

func NewPostgresBaselineStore(pg *pkgpg.Client) *PostgresBaselineStore {
	return &PostgresBaselineStore{db: pg.DB()}
}

func (s *PostgresBaselineStore) Get(ctx context.Context, userID string, metric models.MetricType) (*models.Baseline, error) {
	var row baselineRow
	q := `SELECT ` + baselineColumns + ` FROM health_baselines WHERE user_id = $1 AND metric_type = $2`
	err := s.db.GetContext(ctx, &row, q, userID, string(metric))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get baseline: %w", err)
	}
	b := row.toModel()
	return &b, nil
}

func (s *PostgresBaselineStore) Upsert(ctx context.Context, b models.Baseline) (models.Baseline, error) {
	expected := b.Version
	row := toBaselineRow(b)
	row.Version = expected + 1

	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO health_baselines (`+baselineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (user_id, metric_type) DO NOTHING`,
			row.UserID, row.MetricType, row.Value, row.StdDev, row.SampleCount, row.WindowDays,
			row.AlertThresholdPct, row.CriticalThresholdPct, row.NormalRangeMin, row.NormalRangeMax,
			row.TrendDirection, row.TrendDurationDays, row.LastUpdated, row.Version,
		)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE health_baselines
			SET value = $3, std_dev = $4, sample_count = $5, window_days = $6,
			    alert_threshold_pct = $7, critical_threshold_pct = $8,
			    normal_range_min = $9, normal_range_max = $10,
			    trend_direction = $11, trend_duration_days = $12,
			    last_updated = $13, version = $14
			WHERE user_id = $1 AND metric_type = $2 AND version = $15`,
			row.UserID, row.MetricType, row.Value, row.StdDev, row.SampleCount, row.WindowDays,
			row.AlertThresholdPct, row.CriticalThresholdPct, row.NormalRangeMin, row.NormalRangeMax,
			row.TrendDirection, row.TrendDurationDays, row.LastUpdated, row.Version, expected,
		)
	}
	if err != nil {
		if pkgpg.IsSerializationFailure(err) || pkgpg.IsUniqueViolation(err) {
			return models.Baseline{}, models.ErrConflict
		}
		return models.Baseline{}, fmt.Errorf("postgres upsert baseline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Baseline{}, fmt.Errorf("postgres rows affected: %w", err)
	}
	if n == 0 {
		return models.Baseline{}, models.ErrConflict
	}
	return row.toModel(), nil
}

func (s *PostgresBaselineStore) ListByUser(ctx context.Context, userID string) ([]models.Baseline, error) {
	var rows []baselineRow
	q := `SELECT ` + baselineColumns + ` FROM health_baselines WHERE user_id = $1 ORDER BY metric_type`
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("postgres list baselines: %w", err)
	}
	out := make([]models.Baseline, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
