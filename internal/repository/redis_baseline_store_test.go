package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VitalPulse/internal/domain/models"
)

func TestRedisBaselineKeys(t *testing.T) {
	s := NewRedisBaselineStore(nil, "", nil)
	assert.Equal(t, "vitalpulse:baseline:u1:hrv", s.docKey("u1", models.MetricHRV))
	assert.Equal(t, "vitalpulse:baseline:u1:_metrics", s.indexKey("u1"))

	s = NewRedisBaselineStore(nil, "staging", nil)
	assert.Equal(t, "staging:baseline:u2:steps", s.docKey("u2", models.MetricSteps))
}

func TestDecodeBaseline(t *testing.T) {
	lo := 20.0
	in := models.Baseline{
		UserID:            "u1",
		MetricType:        models.MetricHRV,
		Value:             60,
		StdDev:            5,
		SampleCount:       10,
		WindowDays:        14,
		AlertThresholdPct: 15,
		NormalRangeMin:    &lo,
		TrendDirection:    models.TrendStable,
		LastUpdated:       time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Version:           4,
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := decodeBaseline(raw)
	require.NoError(t, err)
	assert.Equal(t, in.Version, out.Version)
	require.NotNil(t, out.NormalRangeMin)
	assert.Equal(t, 20.0, *out.NormalRangeMin)
	assert.Nil(t, out.NormalRangeMax)
	assert.True(t, in.LastUpdated.Equal(out.LastUpdated))

	_, err = decodeBaseline([]byte(`{"value":1}`))
	assert.Error(t, err)
	_, err = decodeBaseline([]byte(`not json`))
	assert.Error(t, err)
}

func newRedisStore(t *testing.T) (*RedisBaselineStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBaselineStore(client, "test", nil), mr
}

func TestRedisUpsertVersioning(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	b := models.Baseline{UserID: "u1", MetricType: models.MetricHRV, Value: 60, SampleCount: 1}
	stored, err := s.Upsert(ctx, b)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Version)
	assert.True(t, mr.Exists("test:baseline:u1:hrv"))

	// a second create loses
	_, err = s.Upsert(ctx, b)
	require.ErrorIs(t, err, models.ErrConflict)

	stored.Value = 62
	stored, err = s.Upsert(ctx, stored)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.Version)

	// stale writer still holds version 1
	stale := stored
	stale.Version = 1
	_, err = s.Upsert(ctx, stale)
	require.ErrorIs(t, err, models.ErrConflict)

	got, err := s.Get(ctx, "u1", models.MetricHRV)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 62.0, got.Value)
	assert.EqualValues(t, 2, got.Version)
}

func TestRedisListByUser(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	for _, m := range []models.MetricType{models.MetricSteps, models.MetricHRV} {
		_, err := s.Upsert(ctx, models.Baseline{UserID: "u1", MetricType: m, Value: 1, SampleCount: 1})
		require.NoError(t, err)
	}
	// indexed but corrupt documents are skipped
	require.NoError(t, mr.Set("test:baseline:u1:rhr", "not json"))
	_, err := mr.SetAdd("test:baseline:u1:_metrics", "rhr")
	require.NoError(t, err)

	list, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.MetricHRV, list[0].MetricType)
	assert.Equal(t, models.MetricSteps, list[1].MetricType)

	missing, err := s.Get(ctx, "u2", models.MetricHRV)
	require.NoError(t, err)
	assert.Nil(t, missing)
	empty, err := s.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
