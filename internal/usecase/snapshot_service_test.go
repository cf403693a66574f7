package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VitalPulse/internal/domain/models"
	"VitalPulse/pkg/cache"
	"VitalPulse/pkg/logger"
)

type countingBuilder struct {
	mu      sync.Mutex
	calls   int
	partial bool
	err     error
}

func (b *countingBuilder) Build(_ context.Context, userID string) (*models.HealthSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &models.HealthSnapshot{
		ID:            "snap",
		UserID:        userID,
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Metrics:       map[models.MetricType]float64{models.MetricHRV: 55},
		OverallHealth: models.HealthGood,
		Partial:       b.partial,
	}, nil
}

func (b *countingBuilder) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, s *models.HealthSnapshot) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, s.UserID)
	return nil
}

type recordingQueue struct {
	types    []string
	payloads []interface{}
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func newMemCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c := cache.NewMemoryCache(cache.WithMemoryMaxSize(16))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSnapshotServiceCachesCompleteSnapshots(t *testing.T) {
	b := &countingBuilder{}
	svc := NewSnapshotService(b, newMemCache(t), nil, nil, nil, logger.Nop(), SnapshotServiceConfig{CacheTTL: time.Minute})
	ctx := context.Background()

	first, hit, err := svc.Get(ctx, "u1", false)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Get(ctx, "u1", false)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 55.0, second.Metrics[models.MetricHRV])
	assert.Equal(t, 1, b.Calls())

	_, hit, err = svc.Get(ctx, "u1", true)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, b.Calls())
}

func TestSnapshotServiceSkipsCachingPartial(t *testing.T) {
	b := &countingBuilder{partial: true}
	svc := NewSnapshotService(b, newMemCache(t), nil, nil, nil, logger.Nop(), SnapshotServiceConfig{})

	for i := 0; i < 2; i++ {
		_, hit, err := svc.Get(context.Background(), "u1", false)
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, b.Calls())
}

func TestSnapshotServiceWithoutCache(t *testing.T) {
	b := &countingBuilder{}
	svc := NewSnapshotService(b, nil, nil, nil, nil, nil, SnapshotServiceConfig{})
	_, hit, err := svc.Get(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.False(t, hit)

	_, _, err = svc.Get(context.Background(), "", false)
	assert.ErrorIs(t, err, models.ErrInvalidObservation)
}

func TestSnapshotServiceEnqueue(t *testing.T) {
	svc := NewSnapshotService(&countingBuilder{}, nil, nil, nil, nil, nil, SnapshotServiceConfig{})
	assert.ErrorIs(t, svc.Enqueue(context.Background(), "u1"), ErrJobsDisabled)

	q := &recordingQueue{}
	svc = NewSnapshotService(&countingBuilder{}, nil, nil, q, nil, nil, SnapshotServiceConfig{})
	require.NoError(t, svc.Enqueue(context.Background(), "u1"))
	assert.Equal(t, []string{SnapshotJobType}, q.types)
	assert.Equal(t, snapshotJobPayload{UserID: "u1"}, q.payloads[0])

	assert.ErrorIs(t, svc.Enqueue(context.Background(), " "), models.ErrInvalidObservation)
}

func TestSnapshotJobBuildsAndPublishes(t *testing.T) {
	b := &countingBuilder{}
	pub := &recordingPublisher{}
	c := newMemCache(t)
	svc := NewSnapshotService(b, c, pub, nil, nil, logger.Nop(), SnapshotServiceConfig{})
	job := NewSnapshotJob(svc)
	assert.Equal(t, SnapshotJobType, job.Type())

	require.NoError(t, job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)))
	assert.Equal(t, []string{"u1"}, pub.published)

	_, hit, err := svc.Get(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.True(t, hit)

	ok, err := c.TryLock(context.Background(), snapshotLockKey("u1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "job must release its lock")
}

func TestSnapshotJobSkipsWhenLocked(t *testing.T) {
	b := &countingBuilder{}
	c := newMemCache(t)
	svc := NewSnapshotService(b, c, nil, nil, nil, logger.Nop(), SnapshotServiceConfig{})

	ok, err := c.TryLock(context.Background(), snapshotLockKey("u1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, NewSnapshotJob(svc).Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)))
	assert.Zero(t, b.Calls())
}

func TestSnapshotJobErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewSnapshotService(&countingBuilder{}, nil, pub, nil, nil, logger.Nop(), SnapshotServiceConfig{})
	job := NewSnapshotJob(svc)

	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)))
	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`nope`)))

	svc = NewSnapshotService(&countingBuilder{err: errors.New("boom")}, nil, nil, nil, nil, logger.Nop(), SnapshotServiceConfig{})
	assert.Error(t, NewSnapshotJob(svc).Handle(context.Background(), json.RawMessage(`{"user_id":"u1"}`)))
}
