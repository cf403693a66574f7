package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	pkgch "VitalPulse/pkg/clickhouse"
	applogger "VitalPulse/pkg/logger"
)

var _ repository.RecordsStore = (*CHRecordsStore)(nil)

// ClickHouseSchema lists the record tables. Activity, sleep, doses and
// profiles are written by the device sync pipeline; this service only reads them.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		user_id     String,
		metric_type LowCardinality(String),
		value       Float64,
		source      LowCardinality(String),
		ts          DateTime64(3, 'UTC'),
		ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (user_id, metric_type, ts)`,
	`CREATE TABLE IF NOT EXISTS activity_daily (
		user_id     String,
		day         Date COMMENT 'calendar date in the user''s time zone',
		steps       Float64,
		recorded_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(recorded_at)
	ORDER BY (user_id, day)`,
	`CREATE TABLE IF NOT EXISTS sleep_sessions (
		user_id        String,
		start_at       DateTime64(3, 'UTC'),
		end_at         DateTime64(3, 'UTC'),
		duration_hours Float64,
		score          Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (user_id, end_at)`,
	`CREATE TABLE IF NOT EXISTS medication_doses (
		user_id      String,
		dose_id      String,
		name         String,
		scheduled_at DateTime64(3, 'UTC'),
		confirmed_at Nullable(DateTime64(3, 'UTC')),
		updated_at   DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (user_id, dose_id)`,
	`CREATE TABLE IF NOT EXISTS device_syncs (
		user_id   String,
		device_id String,
		synced_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (user_id, synced_at)
	TTL toDateTime(synced_at) + INTERVAL 90 DAY`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id    String,
		timezone   String,
		updated_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY user_id`,
}

// CHRecordsStore reads raw records from ClickHouse and appends observations.
type CHRecordsStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHRecordsStore(ch *pkgch.Client, l *applogger.Logger) *CHRecordsStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHRecordsStore{db: ch.DB(), l: l}
}

func (s *CHRecordsStore) Store(ctx context.Context, obs models.Observation) error {
	const q = `INSERT INTO observations (user_id, metric_type, value, source, ts) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, obs.UserID, string(obs.MetricType), obs.Value, obs.Source, obs.Timestamp.UTC()); err != nil {
		s.l.Error("clickhouse insert observation failed",
			applogger.User(obs.UserID), applogger.Metric(string(obs.MetricType)), applogger.Error(err))
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

func (s *CHRecordsStore) Latest(ctx context.Context, userID string, metric models.MetricType) (float64, bool, error) {
	const q = `
		SELECT value FROM observations
		WHERE user_id = ? AND metric_type = ?
		ORDER BY ts DESC
		LIMIT 1`
	var v float64
	err := s.db.QueryRowContext(ctx, q, userID, string(metric)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest %s: %w", metric, err)
	}
	return v, true, nil
}

func (s *CHRecordsStore) LatestActivity(ctx context.Context, userID string) (*models.ActivityRecord, error) {
	const q = `
		SELECT day, steps, recorded_at FROM activity_daily FINAL
		WHERE user_id = ?
		ORDER BY day DESC
		LIMIT 1`
	var r models.ActivityRecord
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&r.Day, &r.Steps, &r.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest activity: %w", err)
	}
	return &r, nil
}

func (s *CHRecordsStore) LatestSleep(ctx context.Context, userID string) (*models.SleepRecord, error) {
	const q = `
		SELECT start_at, end_at, duration_hours, score FROM sleep_sessions FINAL
		WHERE user_id = ?
		ORDER BY end_at DESC
		LIMIT 1`
	var r models.SleepRecord
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&r.Start, &r.End, &r.DurationHours, &r.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sleep: %w", err)
	}
	return &r, nil
}

func (s *CHRecordsStore) UnconfirmedDoses(ctx context.Context, userID string, from, to time.Time) ([]models.MedicationDose, error) {
	const q = `
		SELECT dose_id, name, scheduled_at FROM medication_doses FINAL
		WHERE user_id = ? AND scheduled_at >= ? AND scheduled_at < ? AND confirmed_at IS NULL
		ORDER BY scheduled_at ASC`
	rows, err := s.db.QueryContext(ctx, q, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("unconfirmed doses: %w", err)
	}
	defer rows.Close()

	out := make([]models.MedicationDose, 0)
	for rows.Next() {
		var d models.MedicationDose
		if err := rows.Scan(&d.ID, &d.Name, &d.ScheduledAt); err != nil {
			return nil, fmt.Errorf("scan dose: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHRecordsStore) LastDeviceSync(ctx context.Context, userID string) (*time.Time, error) {
	const q = `
		SELECT synced_at FROM device_syncs
		WHERE user_id = ?
		ORDER BY synced_at DESC
		LIMIT 1`
	var ts time.Time
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last device sync: %w", err)
	}
	return &ts, nil
}

// UserLocation returns nil when the profile is missing or names an unknown zone.
func (s *CHRecordsStore) UserLocation(ctx context.Context, userID string) (*time.Location, error) {
	const q = `SELECT timezone FROM user_profiles FINAL WHERE user_id = ? LIMIT 1`
	var tz string
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user profile: %w", err)
	}
	return parseLocation(tz, userID, s.l), nil
}

func parseLocation(tz, userID string, l *applogger.Logger) *time.Location {
	if tz == "" {
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		l.Warn("unknown user timezone", applogger.User(userID), applogger.String("timezone", tz))
		return nil
	}
	return loc
}
