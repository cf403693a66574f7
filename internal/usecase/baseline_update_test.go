package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"VitalPulse/internal/domain/models"
	domrepo "VitalPulse/internal/domain/repository"
	"VitalPulse/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func newBaselineUC(repo *repository.MemoryBaselineStore, records *repository.MemoryRecordsStore, cfg BaselineConfig) *BaselineUseCase {
	var sink domrepo.ObservationSink
	if records != nil {
		sink = records
	}
	uc := NewBaselineUseCase(repo, sink, nil, nil, cfg)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func TestUpdateCreatesThenFolds(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBaselineStore()
	uc := newBaselineUC(store, nil, BaselineConfig{})

	b, err := uc.Update(ctx, "u1", models.MetricHRV, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, b.SampleCount)
	assert.EqualValues(t, 1, b.Version)
	assert.Equal(t, 14, b.WindowDays)

	b, err = uc.Update(ctx, "u1", models.MetricHRV, 60, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, b.SampleCount)
	assert.EqualValues(t, 2, b.Version)
	assert.InDelta(t, 55.0, b.Value, 1e-9)
	assert.Equal(t, fixedNow, b.LastUpdated)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	uc := newBaselineUC(repository.NewMemoryBaselineStore(), nil, BaselineConfig{})
	ctx := context.Background()

	_, err := uc.Update(ctx, "u1", models.MetricHRV, math.NaN(), 0)
	require.ErrorIs(t, err, models.ErrInvalidObservation)
	_, err = uc.Update(ctx, "u1", models.MetricHRV, math.Inf(1), 0)
	require.ErrorIs(t, err, models.ErrInvalidObservation)
	_, err = uc.Update(ctx, " ", models.MetricHRV, 1, 0)
	require.ErrorIs(t, err, models.ErrInvalidObservation)
	_, err = uc.Update(ctx, "u1", "vo2max", 1, 0)
	require.ErrorIs(t, err, models.ErrUnknownMetric)
}

func TestConcurrentUpdatesDoNotLoseSamples(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBaselineStore()
	uc := newBaselineUC(store, nil, BaselineConfig{WindowDays: 100, ConflictRetries: 100})

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			if _, err := uc.Update(ctx, "u1", models.MetricSteps, v, 0); err != nil {
				errs <- err
			}
		}(float64(5000 + i*10))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("update failed: %v", err)
	}

	b, err := store.Get(ctx, "u1", models.MetricSteps)
	require.NoError(t, err)
	assert.Equal(t, writers, b.SampleCount)
	assert.EqualValues(t, writers, b.Version)
	// mean of 5000..5490 step 10
	assert.InDelta(t, 5245.0, b.Value, 1e-6)
}

// conflictStore always loses the race.
type conflictStore struct {
	*repository.MemoryBaselineStore
	upserts atomic.Int32
}

func (s *conflictStore) Upsert(context.Context, models.Baseline) (models.Baseline, error) {
	s.upserts.Add(1)
	return models.Baseline{}, models.ErrConflict
}

func TestConflictRetriesAreBounded(t *testing.T) {
	store := &conflictStore{MemoryBaselineStore: repository.NewMemoryBaselineStore()}
	uc := NewBaselineUseCase(store, nil, nil, nil, BaselineConfig{ConflictRetries: 3})

	_, err := uc.Update(context.Background(), "u1", models.MetricHRV, 50, 0)
	require.ErrorIs(t, err, models.ErrConflict)
	assert.EqualValues(t, 3, store.upserts.Load())
}

// flakyStore fails the first read.
type flakyStore struct {
	*repository.MemoryBaselineStore
	reads atomic.Int32
}

func (s *flakyStore) Get(ctx context.Context, userID string, metric models.MetricType) (*models.Baseline, error) {
	if s.reads.Add(1) == 1 {
		return nil, errors.New("i/o timeout")
	}
	return s.MemoryBaselineStore.Get(ctx, userID, metric)
}

func TestUpdateRetriesReadFailures(t *testing.T) {
	store := &flakyStore{MemoryBaselineStore: repository.NewMemoryBaselineStore()}
	uc := NewBaselineUseCase(store, nil, nil, nil, BaselineConfig{IORetries: 2})

	b, err := uc.Update(context.Background(), "u1", models.MetricHRV, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, b.SampleCount)
	assert.EqualValues(t, 2, store.reads.Load())
}

func TestIngestStoresObservation(t *testing.T) {
	ctx := context.Background()
	records := repository.NewMemoryRecordsStore()
	uc := newBaselineUC(repository.NewMemoryBaselineStore(), records, BaselineConfig{})

	_, err := uc.Ingest(ctx, models.Observation{UserID: "u1", MetricType: models.MetricRestingHR, Value: 61})
	require.NoError(t, err)

	v, found, err := records.Latest(ctx, "u1", models.MetricRestingHR)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 61.0, v)
}

func TestIngestRejectsBeforeStoring(t *testing.T) {
	ctx := context.Background()
	records := repository.NewMemoryRecordsStore()
	uc := newBaselineUC(repository.NewMemoryBaselineStore(), records, BaselineConfig{})

	_, err := uc.Ingest(ctx, models.Observation{UserID: "u1", MetricType: "bmi", Value: 22})
	require.ErrorIs(t, err, models.ErrUnknownMetric)
	_, found, _ := records.Latest(ctx, "u1", "bmi")
	assert.False(t, found)
}

func TestOverrideThresholds(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBaselineStore()
	uc := newBaselineUC(store, nil, BaselineConfig{})

	_, err := uc.OverrideThresholds(ctx, "u1", models.MetricGlucoseAvg, models.ThresholdOverride{})
	require.ErrorIs(t, err, models.ErrBaselineNotFound)

	_, err = uc.Update(ctx, "u1", models.MetricGlucoseAvg, 110, 0)
	require.NoError(t, err)

	alert, crit, hi := 10.0, 25.0, 160.0
	b, err := uc.OverrideThresholds(ctx, "u1", models.MetricGlucoseAvg, models.ThresholdOverride{
		AlertThresholdPct: &alert, CriticalThresholdPct: &crit, NormalRangeMax: &hi,
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, b.AlertThresholdPct)
	assert.Equal(t, 25.0, b.CriticalThresholdPct)
	assert.Equal(t, 160.0, *b.NormalRangeMax)
	assert.Equal(t, 70.0, *b.NormalRangeMin)
	assert.Equal(t, 1, b.SampleCount)

	low := 5.0
	_, err = uc.OverrideThresholds(ctx, "u1", models.MetricGlucoseAvg, models.ThresholdOverride{CriticalThresholdPct: &low})
	require.ErrorIs(t, err, models.ErrInvalidThreshold)
}
