package service

import (
	"context"
	"time"

	"VitalPulse/internal/domain/models"
)

// AnomalyClassifier classifies one observed value against the user's baseline.
type AnomalyClassifier interface {
	Classify(ctx context.Context, userID string, metric models.MetricType, value float64) (models.AnomalyResult, error)
}

// PatternCheck is one independent absence check. A nil break means the pattern held.
type PatternCheck struct {
	Name string
	Run  func(ctx context.Context, userID string, now time.Time) (*models.PatternBreak, error)
}

// PatternBreakDetector runs absence-based checks for a user.
type PatternBreakDetector interface {
	Checks() []PatternCheck
	Detect(ctx context.Context, userID string) ([]models.PatternBreak, error)
}

// SnapshotBuilder assembles a full health snapshot.
type SnapshotBuilder interface {
	Build(ctx context.Context, userID string) (*models.HealthSnapshot, error)
}
