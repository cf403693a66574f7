package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VitalPulse/internal/di"
	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/repository"
	"VitalPulse/internal/services/anomaly"
	"VitalPulse/internal/services/catalog"
	"VitalPulse/internal/services/patterns"
	"VitalPulse/internal/usecase"
	"VitalPulse/pkg/config"
	"VitalPulse/pkg/logger"
)

func memoryTooling(store *repository.MemoryBaselineStore) func(*config.Config) (*di.Tooling, error) {
	return func(cfg *config.Config) (*di.Tooling, error) {
		l := logger.Nop()
		records := repository.NewMemoryRecordsStore()
		baselines := usecase.NewBaselineUseCase(store, records, nil, l, usecase.BaselineConfig{WindowDays: cfg.Engine.WindowDays})
		classifier := anomaly.NewClassifier(store, l)
		detector := patterns.NewDetector(records, store, l)
		builder := usecase.NewSnapshotBuilder(records, classifier, detector, nil, l, usecase.SnapshotConfig{})
		return &di.Tooling{
			Engine:  usecase.NewEngine(baselines, classifier, detector, builder),
			Records: records,
			Logger:  l,
		}, nil
	}
}

func run(t *testing.T, store *repository.MemoryBaselineStore, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut, memoryTooling(store))
	cmd.SetArgs(append([]string{"--config="}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogJSON(t *testing.T) {
	out, err := run(t, repository.NewMemoryBaselineStore(), "catalog", "--json")
	require.NoError(t, err)

	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, len(catalog.Types()))
}

func TestCatalogTable(t *testing.T) {
	out, err := run(t, repository.NewMemoryBaselineStore(), "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "METRIC")
	assert.Contains(t, out, string(models.MetricHRV))
}

func TestObserveThenGet(t *testing.T) {
	store := repository.NewMemoryBaselineStore()

	out, err := run(t, store, "observe", "u1", "hrv", "58", "--json")
	require.NoError(t, err)
	var b models.Baseline
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, 58.0, b.Value)
	assert.Equal(t, 1, b.SampleCount)
	assert.Equal(t, 14, b.WindowDays)

	out, err = run(t, store, "baseline", "get", "u1", "hrv", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, int64(1), b.Version)

	out, err = run(t, store, "baseline", "get", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 samples")
}

func TestObserveRejectsBadInput(t *testing.T) {
	store := repository.NewMemoryBaselineStore()

	_, err := run(t, store, "observe", "u1", "hrv", "abc")
	assert.Error(t, err)

	_, err = run(t, store, "observe", "u1", "mood", "3")
	assert.ErrorIs(t, err, models.ErrUnknownMetric)
}

func TestBaselineGetMissing(t *testing.T) {
	_, err := run(t, repository.NewMemoryBaselineStore(), "baseline", "get", "u1", "hrv")
	assert.ErrorIs(t, err, models.ErrBaselineNotFound)
}

func TestThresholds(t *testing.T) {
	store := repository.NewMemoryBaselineStore()
	store.Put(models.Baseline{
		UserID: "u1", MetricType: models.MetricHRV, Value: 60, StdDev: 5, SampleCount: 10,
		WindowDays: 14, AlertThresholdPct: 15, CriticalThresholdPct: 25, TrendDirection: models.TrendStable,
	})

	_, err := run(t, store, "baseline", "thresholds", "u1", "hrv")
	assert.Error(t, err)

	out, err := run(t, store, "baseline", "thresholds", "u1", "hrv", "--alert", "20", "--critical", "30", "--json")
	require.NoError(t, err)
	var b models.Baseline
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, 20.0, b.AlertThresholdPct)
	assert.Equal(t, 30.0, b.CriticalThresholdPct)
	assert.Nil(t, b.NormalRangeMin)

	_, err = run(t, store, "baseline", "thresholds", "u1", "hrv", "--critical", "10")
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)
}

func TestClassify(t *testing.T) {
	store := repository.NewMemoryBaselineStore()
	store.Put(models.Baseline{
		UserID: "u1", MetricType: models.MetricHRV, Value: 60, StdDev: 5, SampleCount: 10,
		WindowDays: 14, AlertThresholdPct: 15, CriticalThresholdPct: 25, TrendDirection: models.TrendStable,
	})

	out, err := run(t, store, "classify", "u1", "hrv", "45", "--json")
	require.NoError(t, err)
	var res models.AnomalyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsAnomaly)
	assert.Equal(t, models.SeverityCritical, res.SeverityOrNone())

	out, err = run(t, store, "classify", "u1", "hrv", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "within baseline")

	out, err = run(t, store, "classify", "u2", "hrv", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "not enough history")
}

func TestSnapshotJSON(t *testing.T) {
	out, err := run(t, repository.NewMemoryBaselineStore(), "snapshot", "u1", "--json")
	require.NoError(t, err)
	var snap models.HealthSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "u1", snap.UserID)
	assert.NotEmpty(t, snap.OverallHealth)
}

func TestPatternsText(t *testing.T) {
	out, err := run(t, repository.NewMemoryBaselineStore(), "patterns", "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
