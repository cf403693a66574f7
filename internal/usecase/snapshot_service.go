package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"VitalPulse/internal/domain/models"
	domrepo "VitalPulse/internal/domain/repository"
	"VitalPulse/internal/domain/service"
	"VitalPulse/pkg/cache"
	"VitalPulse/pkg/logger"
	"VitalPulse/pkg/queue"
)

// SnapshotJobType is the queue message type for background snapshot builds.
const SnapshotJobType = "snapshot.build"

// ErrJobsDisabled is returned by Enqueue when no job queue is configured.
var ErrJobsDisabled = errors.New("snapshot jobs disabled")

type SnapshotServiceConfig struct {
	CacheTTL time.Duration
	LockTTL  time.Duration
	Topic    string
}

// SnapshotService serves snapshots to callers: cached reads, background
// builds through the job queue, and publication of finished snapshots.
// cache, publisher and jobs are optional.
type SnapshotService struct {
	builder   service.SnapshotBuilder
	cache     cache.Service
	publisher domrepo.SnapshotPublisher
	jobs      queue.QueueService
	metrics   domrepo.Metrics
	log       *logger.Logger
	cfg       SnapshotServiceConfig
}

func NewSnapshotService(builder service.SnapshotBuilder, c cache.Service, publisher domrepo.SnapshotPublisher, jobs queue.QueueService, metrics domrepo.Metrics, l *logger.Logger, cfg SnapshotServiceConfig) *SnapshotService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &SnapshotService{builder: builder, cache: c, publisher: publisher, jobs: jobs, metrics: metrics, log: l, cfg: cfg}
}

func snapshotCacheKey(userID string) string {
	return cache.GenerateKey("snapshot", userID)
}

func snapshotLockKey(userID string) string {
	return cache.GenerateKey("snapshot:lock", userID)
}

// Get returns a cached snapshot unless refresh is set or none is cached.
// The bool reports a cache hit. Partial snapshots are never cached.
func (s *SnapshotService) Get(ctx context.Context, userID string, refresh bool) (*models.HealthSnapshot, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, fmt.Errorf("%w: empty user id", models.ErrInvalidObservation)
	}
	if !refresh && s.cache != nil {
		var snap models.HealthSnapshot
		err := s.cache.Get(ctx, snapshotCacheKey(userID), &snap)
		switch {
		case err == nil:
			return &snap, true, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.Warn("snapshot cache read failed", logger.User(userID), logger.Error(err))
		}
	}

	snap, err := s.builder.Build(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, snap)
	return snap, false, nil
}

// Refresh builds, caches and publishes a snapshot.
func (s *SnapshotService) Refresh(ctx context.Context, userID string) (*models.HealthSnapshot, error) {
	snap, err := s.builder.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, snap)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, snap); err != nil {
			s.metrics.RecordError("snapshot_publish")
			return snap, fmt.Errorf("publish snapshot: %w", err)
		}
	}
	return snap, nil
}

// Enqueue schedules a background build.
func (s *SnapshotService) Enqueue(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", models.ErrInvalidObservation)
	}
	if s.jobs == nil {
		return ErrJobsDisabled
	}
	if err := s.jobs.PublishMessage(ctx, SnapshotJobType, snapshotJobPayload{UserID: userID}); err != nil {
		s.metrics.RecordError("snapshot_enqueue")
		return fmt.Errorf("enqueue snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotService) store(ctx context.Context, snap *models.HealthSnapshot) {
	if s.cache == nil || snap.Partial {
		return
	}
	if err := s.cache.Set(ctx, snapshotCacheKey(snap.UserID), snap, s.cfg.CacheTTL); err != nil {
		s.log.Warn("snapshot cache write failed", logger.User(snap.UserID), logger.Error(err))
	}
}

type snapshotJobPayload struct {
	UserID string `json:"user_id"`
}

var _ queue.Job = (*SnapshotJob)(nil)

// SnapshotJob builds and publishes one user's snapshot from the queue. A
// per-user lock skips the build when another worker already holds it.
type SnapshotJob struct {
	snapshots *SnapshotService
}

func NewSnapshotJob(snapshots *SnapshotService) *SnapshotJob {
	return &SnapshotJob{snapshots: snapshots}
}

func (j *SnapshotJob) Name() string { return "snapshot_builder" }

func (j *SnapshotJob) Type() string { return SnapshotJobType }

func (j *SnapshotJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[snapshotJobPayload](payload)
	if err != nil {
		return err
	}
	s := j.snapshots
	if s.cache != nil {
		key := snapshotLockKey(p.UserID)
		ok, err := s.cache.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("snapshot lock: %w", err)
		}
		if !ok {
			s.log.Debug("snapshot build already running", logger.User(p.UserID))
			return nil
		}
		defer func() {
			if err := s.cache.Unlock(context.WithoutCancel(ctx), key); err != nil {
				s.log.Warn("snapshot unlock failed", logger.User(p.UserID), logger.Error(err))
			}
		}()
	}

	snap, err := s.Refresh(ctx, p.UserID)
	if err != nil {
		return err
	}
	s.log.Info("snapshot built",
		logger.User(p.UserID),
		logger.String("overall", string(snap.OverallHealth)),
		logger.Bool("partial", snap.Partial))
	return nil
}
