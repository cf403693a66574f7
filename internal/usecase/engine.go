package usecase

import (
	"context"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/service"
)

// Engine is the entry point callers use: classification, baseline updates,
// pattern detection and snapshots.
type Engine struct {
	Baselines  *BaselineUseCase
	classifier service.AnomalyClassifier
	patterns   service.PatternBreakDetector
	snapshots  service.SnapshotBuilder
}

func NewEngine(baselines *BaselineUseCase, classifier service.AnomalyClassifier, patterns service.PatternBreakDetector, snapshots *SnapshotBuilder) *Engine {
	return &Engine{Baselines: baselines, classifier: classifier, patterns: patterns, snapshots: snapshots}
}

func (e *Engine) Classify(ctx context.Context, userID string, metric models.MetricType, value float64) (models.AnomalyResult, error) {
	return e.classifier.Classify(ctx, userID, metric, value)
}

func (e *Engine) UpdateBaseline(ctx context.Context, userID string, metric models.MetricType, value float64, windowDays int) (models.Baseline, error) {
	return e.Baselines.Update(ctx, userID, metric, value, windowDays)
}

func (e *Engine) DetectPatternBreaks(ctx context.Context, userID string) ([]models.PatternBreak, error) {
	return e.patterns.Detect(ctx, userID)
}

func (e *Engine) BuildSnapshot(ctx context.Context, userID string) (*models.HealthSnapshot, error) {
	return e.snapshots.Build(ctx, userID)
}
