package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	"VitalPulse/internal/services/baseline"
	"VitalPulse/internal/services/catalog"
	"VitalPulse/pkg/logger"
)

type BaselineConfig struct {
	WindowDays      int
	ConflictRetries int
	IORetries       int
}

// BaselineUseCase owns every baseline mutation. Writes go through a
// read-compute-CAS loop against the repository.
type BaselineUseCase struct {
	repo    repository.BaselineRepository
	sink    repository.ObservationSink
	metrics repository.Metrics
	log     *logger.Logger
	cfg     BaselineConfig
	now     func() time.Time
}

// NewBaselineUseCase wires the use case. sink and metrics may be nil.
func NewBaselineUseCase(repo repository.BaselineRepository, sink repository.ObservationSink, metrics repository.Metrics, l *logger.Logger, cfg BaselineConfig) *BaselineUseCase {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = baseline.DefaultWindowDays
	}
	if cfg.ConflictRetries <= 0 {
		cfg.ConflictRetries = 3
	}
	if cfg.IORetries <= 0 {
		cfg.IORetries = 1
	}
	if l == nil {
		l = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &BaselineUseCase{repo: repo, sink: sink, metrics: metrics, log: l, cfg: cfg, now: time.Now}
}

func (u *BaselineUseCase) Get(ctx context.Context, userID string, metric models.MetricType) (*models.Baseline, error) {
	if _, err := catalog.MustLookup(metric); err != nil {
		return nil, err
	}
	var b *models.Baseline
	err := withRetry(ctx, u.cfg.IORetries, func(ctx context.Context) error {
		var err error
		b, err = u.repo.Get(ctx, userID, metric)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get baseline: %w", err)
	}
	return b, nil
}

func (u *BaselineUseCase) List(ctx context.Context, userID string) ([]models.Baseline, error) {
	var out []models.Baseline
	err := withRetry(ctx, u.cfg.IORetries, func(ctx context.Context) error {
		var err error
		out, err = u.repo.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	return out, nil
}

// Update folds value into the stored baseline. windowDays <= 0 uses the configured window.
func (u *BaselineUseCase) Update(ctx context.Context, userID string, metric models.MetricType, value float64, windowDays int) (models.Baseline, error) {
	if err := validate(userID, value); err != nil {
		return models.Baseline{}, err
	}
	entry, err := catalog.MustLookup(metric)
	if err != nil {
		return models.Baseline{}, err
	}
	if windowDays <= 0 {
		windowDays = u.cfg.WindowDays
	}
	start := time.Now()
	saved, err := u.mutate(ctx, userID, metric, func(existing *models.Baseline) (models.Baseline, error) {
		return baseline.Update(existing, userID, entry, value, windowDays, u.now()), nil
	})
	u.metrics.RecordLatency("baseline_update", time.Since(start).Seconds())
	if err != nil {
		u.metrics.RecordError("baseline_update")
		return models.Baseline{}, err
	}
	u.metrics.RecordBaselineUpdate(string(metric))
	return saved, nil
}

// OverrideThresholds changes only thresholds and range; the baseline must exist.
func (u *BaselineUseCase) OverrideThresholds(ctx context.Context, userID string, metric models.MetricType, o models.ThresholdOverride) (models.Baseline, error) {
	if _, err := catalog.MustLookup(metric); err != nil {
		return models.Baseline{}, err
	}
	return u.mutate(ctx, userID, metric, func(existing *models.Baseline) (models.Baseline, error) {
		if existing == nil {
			return models.Baseline{}, fmt.Errorf("%w: %s/%s", models.ErrBaselineNotFound, userID, metric)
		}
		next := baseline.ApplyOverride(*existing, o, u.now())
		if next.CriticalThresholdPct < next.AlertThresholdPct {
			return models.Baseline{}, fmt.Errorf("%w: critical below alert", models.ErrInvalidThreshold)
		}
		if next.NormalRangeMin != nil && next.NormalRangeMax != nil && *next.NormalRangeMin > *next.NormalRangeMax {
			return models.Baseline{}, fmt.Errorf("%w: normal range min above max", models.ErrInvalidThreshold)
		}
		return next, nil
	})
}

// Ingest records a raw observation and updates the matching baseline.
func (u *BaselineUseCase) Ingest(ctx context.Context, obs models.Observation) (models.Baseline, error) {
	if err := validate(obs.UserID, obs.Value); err != nil {
		return models.Baseline{}, err
	}
	if _, err := catalog.MustLookup(obs.MetricType); err != nil {
		return models.Baseline{}, err
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = u.now()
	}
	if u.sink != nil {
		err := withRetry(ctx, u.cfg.IORetries, func(ctx context.Context) error {
			return u.sink.Store(ctx, obs)
		})
		if err != nil {
			u.metrics.RecordError("observation_store")
			return models.Baseline{}, fmt.Errorf("store observation: %w", err)
		}
	}
	return u.Update(ctx, obs.UserID, obs.MetricType, obs.Value, obs.WindowDays)
}

func (u *BaselineUseCase) mutate(ctx context.Context, userID string, metric models.MetricType, fn func(existing *models.Baseline) (models.Baseline, error)) (models.Baseline, error) {
	for attempt := 1; ; attempt++ {
		var existing *models.Baseline
		err := withRetry(ctx, u.cfg.IORetries, func(ctx context.Context) error {
			var err error
			existing, err = u.repo.Get(ctx, userID, metric)
			return err
		})
		if err != nil {
			return models.Baseline{}, fmt.Errorf("get baseline: %w", err)
		}

		next, err := fn(existing)
		if err != nil {
			return models.Baseline{}, err
		}
		next.UserID = userID
		next.MetricType = metric
		next.Version = 0
		if existing != nil {
			next.Version = existing.Version
		}

		saved, err := u.repo.Upsert(ctx, next)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return models.Baseline{}, fmt.Errorf("upsert baseline: %w", err)
		}
		u.metrics.RecordConflict(string(metric))
		if attempt >= u.cfg.ConflictRetries {
			return models.Baseline{}, fmt.Errorf("update %s/%s after %d attempts: %w", userID, metric, attempt, err)
		}
		u.log.Debug("baseline conflict, retrying", logger.User(userID), logger.Metric(string(metric)), logger.Int("attempt", attempt))
		if err := ctx.Err(); err != nil {
			return models.Baseline{}, err
		}
	}
}

func validate(userID string, value float64) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", models.ErrInvalidObservation)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: value %v is not finite", models.ErrInvalidObservation, value)
	}
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordBaselineUpdate(string) {}
func (nopMetrics) RecordConflict(string) {}
func (nopMetrics) RecordAnomaly(string, string) {}
func (nopMetrics) RecordPatternBreak(string, string) {}
func (nopMetrics) RecordSnapshot(string, bool) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
