package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	"VitalPulse/internal/domain/service"
	"VitalPulse/internal/services/catalog"
	"VitalPulse/pkg/logger"
)

type SnapshotConfig struct {
	// Timeout bounds the whole build. Zero relies on the caller's context.
	Timeout        time.Duration
	CallTimeout    time.Duration
	MaxConcurrency int
	IORetries      int
}

var _ service.SnapshotBuilder = (*SnapshotBuilder)(nil)

// SnapshotBuilder fans out one task per catalog metric and one per pattern
// check, then aggregates whatever finished. It never mutates baselines.
type SnapshotBuilder struct {
	latest     repository.LatestMetricProvider
	classifier service.AnomalyClassifier
	patterns   service.PatternBreakDetector
	metrics    repository.Metrics
	log        *logger.Logger
	cfg        SnapshotConfig
	now        func() time.Time
}

func NewSnapshotBuilder(latest repository.LatestMetricProvider, classifier service.AnomalyClassifier, patterns service.PatternBreakDetector, metrics repository.Metrics, l *logger.Logger, cfg SnapshotConfig) *SnapshotBuilder {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.IORetries <= 0 {
		cfg.IORetries = 1
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &SnapshotBuilder{latest: latest, classifier: classifier, patterns: patterns, metrics: metrics, log: l, cfg: cfg, now: time.Now}
}

type snapshotTask struct {
	name string
	run  func(ctx context.Context) taskOutput
}

type taskOutput struct {
	metric  models.MetricType
	value   float64
	found   bool
	anomaly *models.AnomalyResult
	brk     *models.PatternBreak
	err     error
}

type taskDone struct {
	idx int
	out taskOutput
}

func (b *SnapshotBuilder) Build(ctx context.Context, userID string) (*models.HealthSnapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: empty user id", models.ErrInvalidObservation)
	}
	start := time.Now()
	now := b.now()
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	tasks := b.tasks(userID, now)
	done := make(chan taskDone, len(tasks))

	go func() {
		var g errgroup.Group
		g.SetLimit(b.cfg.MaxConcurrency)
		for i, t := range tasks {
			i, t := i, t
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				callCtx := ctx
				if b.cfg.CallTimeout > 0 {
					var cancel context.CancelFunc
					callCtx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
					defer cancel()
				}
				done <- taskDone{idx: i, out: t.run(callCtx)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	outs := make([]*taskOutput, len(tasks))
	partial := false
collect:
	for received := 0; received < len(tasks); received++ {
		select {
		case d := <-done:
			out := d.out
			outs[d.idx] = &out
		case <-ctx.Done():
			partial = true
			break collect
		}
	}

	snap := &models.HealthSnapshot{
		ID:            uuid.NewString(),
		UserID:        userID,
		Timestamp:     now,
		Metrics:       make(map[models.MetricType]float64),
		Anomalies:     make([]models.AnomalyResult, 0),
		PatternBreaks: make([]models.PatternBreak, 0),
		Partial:       partial,
	}
	for i, out := range outs {
		name := tasks[i].name
		switch {
		case out == nil:
			snap.Failures = append(snap.Failures, name)
		case out.err != nil:
			snap.Failures = append(snap.Failures, name)
			b.metrics.RecordError("snapshot_task")
			b.log.Warn("snapshot task failed", logger.User(userID), logger.String("task", name), logger.Error(out.err))
		case out.brk != nil:
			snap.PatternBreaks = append(snap.PatternBreaks, *out.brk)
			b.metrics.RecordPatternBreak(out.brk.PatternType, string(out.brk.Severity))
		case out.found:
			snap.Metrics[out.metric] = out.value
			if out.anomaly != nil && out.anomaly.IsAnomaly {
				snap.Anomalies = append(snap.Anomalies, *out.anomaly)
				b.metrics.RecordAnomaly(string(out.metric), string(out.anomaly.SeverityOrNone()))
			}
		}
	}
	sort.Strings(snap.Failures)
	snap.OverallHealth = models.OverallHealthFor(snap.Anomalies, snap.PatternBreaks)

	if partial {
		b.log.Warn("snapshot deadline reached, returning partial result",
			logger.User(userID), logger.Strings("unfinished", snap.Failures))
	}
	b.metrics.RecordSnapshot(string(snap.OverallHealth), snap.Partial)
	b.metrics.RecordLatency("snapshot_build", time.Since(start).Seconds())
	return snap, nil
}

// tasks lists metric tasks in catalog order followed by pattern checks.
func (b *SnapshotBuilder) tasks(userID string, now time.Time) []snapshotTask {
	types := catalog.Types()
	checks := b.patterns.Checks()
	out := make([]snapshotTask, 0, len(types)+len(checks))
	for _, mt := range types {
		mt := mt
		out = append(out, snapshotTask{
			name: "metric:" + string(mt),
			run:  func(ctx context.Context) taskOutput { return b.classifyLatest(ctx, userID, mt) },
		})
	}
	for _, c := range checks {
		c := c
		out = append(out, snapshotTask{
			name: "pattern:" + c.Name,
			run: func(ctx context.Context) taskOutput {
				var pb *models.PatternBreak
				err := withRetry(ctx, b.cfg.IORetries, func(ctx context.Context) error {
					var err error
					pb, err = c.Run(ctx, userID, now)
					return err
				})
				return taskOutput{brk: pb, err: err}
			},
		})
	}
	return out
}

func (b *SnapshotBuilder) classifyLatest(ctx context.Context, userID string, mt models.MetricType) taskOutput {
	out := taskOutput{metric: mt}
	err := withRetry(ctx, b.cfg.IORetries, func(ctx context.Context) error {
		var err error
		out.value, out.found, err = b.latest.Latest(ctx, userID, mt)
		return err
	})
	if err != nil {
		out.err = fmt.Errorf("latest %s: %w", mt, err)
		return out
	}
	if !out.found {
		return out
	}
	var res models.AnomalyResult
	err = withRetry(ctx, b.cfg.IORetries, func(ctx context.Context) error {
		var err error
		res, err = b.classifier.Classify(ctx, userID, mt, out.value)
		return err
	})
	if err != nil {
		out.err = fmt.Errorf("classify %s: %w", mt, err)
		return out
	}
	out.anomaly = &res
	return out
}
