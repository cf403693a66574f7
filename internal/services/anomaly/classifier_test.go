package anomaly

import (
	"context"
	"errors"
	"testing"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/repository"
	"VitalPulse/internal/services/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(t *testing.T, mt models.MetricType) catalog.Entry {
	t.Helper()
	e, ok := catalog.Lookup(mt)
	require.True(t, ok)
	return e
}

func baselineFor(mt models.MetricType, value, sd float64, n int) *models.Baseline {
	e, _ := catalog.Lookup(mt)
	return &models.Baseline{
		UserID: "u1", MetricType: mt, Value: value, StdDev: sd, SampleCount: n,
		AlertThresholdPct: e.AlertThresholdPct, CriticalThresholdPct: e.CriticalThresholdPct,
		NormalRangeMin: e.NormalRangeMin, NormalRangeMax: e.NormalRangeMax,
	}
}

func TestEvaluateScenarioHRV(t *testing.T) {
	res := Evaluate(baselineFor(models.MetricHRV, 60, 5, 10), lookup(t, models.MetricHRV), 45)

	require.True(t, res.IsAnomaly)
	assert.Equal(t, models.SeverityCritical, res.SeverityOrNone())
	assert.InDelta(t, 25.0, res.DeviationPct, 1e-9)
	assert.InDelta(t, -3.0, res.ZScore, 1e-9)
	assert.Equal(t, "lower", res.Direction)
	require.NotNil(t, res.Message)
	assert.Equal(t, "Heart rate variability is 25% lower than your baseline (45 ms vs 60 ms)", *res.Message)
	require.NotNil(t, res.Recommendation)
	assert.Equal(t, lookup(t, models.MetricHRV).RecommendLow, *res.Recommendation)
	require.NotNil(t, res.Baseline)
	assert.Equal(t, 60.0, res.Baseline.Value)
}

func TestEvaluateScenarioSteps(t *testing.T) {
	b := &models.Baseline{MetricType: models.MetricSteps, Value: 8000, SampleCount: 20, AlertThresholdPct: 40, CriticalThresholdPct: 60}
	res := Evaluate(b, lookup(t, models.MetricSteps), 3000)

	require.True(t, res.IsAnomaly)
	assert.InDelta(t, 62.5, res.DeviationPct, 1e-9)
	assert.Equal(t, models.SeverityCritical, res.SeverityOrNone())
	assert.Zero(t, res.ZScore)
}

func TestEvaluateColdStart(t *testing.T) {
	e := lookup(t, models.MetricSteps)
	for n := 0; n < MinSamples; n++ {
		b := baselineFor(models.MetricSteps, 1000, 100, n)
		res := Evaluate(b, e, 10000)
		assert.False(t, res.IsAnomaly, "sampleCount %d", n)
		assert.Nil(t, res.Severity)
		assert.Nil(t, res.Message)
		assert.Nil(t, res.Recommendation)
		assert.Nil(t, res.Baseline)
		assert.Zero(t, res.DeviationPct)
		assert.Zero(t, res.ZScore)
	}
	assert.False(t, Evaluate(nil, e, 10000).IsAnomaly)
}

func TestEvaluateLadder(t *testing.T) {
	e := lookup(t, models.MetricSleepScore) // alert 15, critical 30, no range
	cases := []struct {
		name  string
		sd    float64
		value float64
		want  models.Severity
	}{
		{"critical by deviation", 0, 69, models.SeverityCritical},
		{"critical by z", 2, 94, models.SeverityCritical},
		{"high by deviation", 0, 84, models.SeverityHigh},
		{"high by z", 4, 108.5, models.SeverityHigh},
		{"medium by deviation", 0, 111, models.SeverityMedium},
		{"medium by z", 6, 110, models.SeverityMedium},
		{"normal", 10, 104, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(baselineFor(models.MetricSleepScore, 100, tc.sd, 10), e, tc.value)
			assert.Equal(t, tc.want, res.SeverityOrNone())
			assert.Equal(t, tc.want != "", res.IsAnomaly)
			assert.Equal(t, tc.want != "", res.Message != nil)
			assert.NotNil(t, res.Baseline)
		})
	}
}

func TestEvaluateOutOfRangeIsLow(t *testing.T) {
	// resting hr baseline near the top of its range; small move pushes past 100
	res := Evaluate(baselineFor(models.MetricRestingHR, 98, 10, 10), lookup(t, models.MetricRestingHR), 102)
	require.True(t, res.IsAnomaly)
	assert.Equal(t, models.SeverityLow, res.SeverityOrNone())
	assert.Equal(t, "higher", res.Direction)
}

func TestEvaluateZeroBaselineValue(t *testing.T) {
	b := &models.Baseline{MetricType: models.MetricStressLevel, Value: 0, StdDev: 0, SampleCount: 10, AlertThresholdPct: 25, CriticalThresholdPct: 40}
	res := Evaluate(b, lookup(t, models.MetricStressLevel), 50)
	assert.Zero(t, res.DeviationPct)
	assert.False(t, res.IsAnomaly)
}

func TestZScoreSignMatchesDirection(t *testing.T) {
	e := lookup(t, models.MetricHRV)
	b := baselineFor(models.MetricHRV, 60, 5, 10)
	for _, v := range []float64{10, 40, 59, 61, 80, 120} {
		res := Evaluate(b, e, v)
		if v > b.Value {
			assert.Positive(t, res.ZScore, "value %v", v)
		} else {
			assert.Negative(t, res.ZScore, "value %v", v)
		}
	}
}

func TestSymmetricDeviationSameTier(t *testing.T) {
	for _, mt := range []models.MetricType{models.MetricSleepScore, models.MetricSteps, models.MetricHRV, models.MetricWeight} {
		e := lookup(t, mt)
		b := baselineFor(mt, 200, 10, 20)
		for _, pct := range []float64{0.01, 0.04, 0.08, 0.12, 0.25, 0.5, 0.9} {
			up := Evaluate(b, e, b.Value*(1+pct))
			down := Evaluate(b, e, b.Value*(1-pct))
			assert.Equal(t, up.SeverityOrNone(), down.SeverityOrNone(), "%s at %v", mt, pct)
		}
	}
}

type failingStore struct{ *repository.MemoryBaselineStore }

func (failingStore) Get(context.Context, string, models.MetricType) (*models.Baseline, error) {
	return nil, errors.New("connection refused")
}

func TestClassifyPropagatesStoreErrors(t *testing.T) {
	c := NewClassifier(failingStore{repository.NewMemoryBaselineStore()}, nil)
	_, err := c.Classify(context.Background(), "u1", models.MetricHRV, 40)
	require.Error(t, err)
}

func TestClassifyUnknownMetric(t *testing.T) {
	c := NewClassifier(repository.NewMemoryBaselineStore(), nil)
	_, err := c.Classify(context.Background(), "u1", "cholesterol", 40)
	require.ErrorIs(t, err, models.ErrUnknownMetric)
}

func TestClassifyIsPure(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryBaselineStore()
	seeded := store.Put(*baselineFor(models.MetricHRV, 60, 5, 10))
	c := NewClassifier(store, nil)

	first, err := c.Classify(ctx, "u1", models.MetricHRV, 45)
	require.NoError(t, err)
	second, err := c.Classify(ctx, "u1", models.MetricHRV, 45)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "u1", first.UserID)

	after, err := store.Get(ctx, "u1", models.MetricHRV)
	require.NoError(t, err)
	assert.Equal(t, seeded, *after)
}
