package repository

import (
	"context"
	"time"

	"VitalPulse/internal/domain/models"
)

// BaselineRepository persists baselines with optimistic concurrency.
//
// Upsert treats b.Version as the version the caller read (0 when the row was
// absent). It fails with models.ErrConflict when the stored version differs,
// otherwise it writes b with Version+1 and returns the stored copy.
type BaselineRepository interface {
	Get(ctx context.Context, userID string, metric models.MetricType) (*models.Baseline, error)
	Upsert(ctx context.Context, b models.Baseline) (models.Baseline, error)
	ListByUser(ctx context.Context, userID string) ([]models.Baseline, error)
}

// LatestMetricProvider returns the most recent observed value of a metric.
type LatestMetricProvider interface {
	Latest(ctx context.Context, userID string, metric models.MetricType) (value float64, found bool, err error)
}

// RecentRecordsProvider exposes the raw records pattern checks look at.
// A nil record means none exists.
type RecentRecordsProvider interface {
	LatestActivity(ctx context.Context, userID string) (*models.ActivityRecord, error)
	LatestSleep(ctx context.Context, userID string) (*models.SleepRecord, error)
	UnconfirmedDoses(ctx context.Context, userID string, from, to time.Time) ([]models.MedicationDose, error)
	LastDeviceSync(ctx context.Context, userID string) (*time.Time, error)
	UserLocation(ctx context.Context, userID string) (*time.Location, error)
}

// ObservationSink stores raw observations.
type ObservationSink interface {
	Store(ctx context.Context, obs models.Observation) error
}

// RecordsStore is the raw-record backend: it takes observations and serves
// every read the classifier and pattern checks need.
type RecordsStore interface {
	ObservationSink
	LatestMetricProvider
	RecentRecordsProvider
}

// SnapshotPublisher emits built snapshots to downstream consumers.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s *models.HealthSnapshot) error
}

type Metrics interface {
	RecordBaselineUpdate(metric string)
	RecordConflict(metric string)
	RecordAnomaly(metric, severity string)
	RecordPatternBreak(patternType, severity string)
	RecordSnapshot(overall string, partial bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
