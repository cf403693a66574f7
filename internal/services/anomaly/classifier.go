package anomaly

import (
	"context"
	"fmt"
	"math"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
	"VitalPulse/internal/domain/service"
	"VitalPulse/internal/services/catalog"
	"VitalPulse/pkg/logger"
)

const (
	// MinSamples is the cold-start guard: baselines with fewer samples never flag.
	MinSamples = 5

	criticalZ         = 3.0
	highZ             = 2.0
	mediumZ           = 1.5
	mediumAlertFactor = 0.7
)

var _ service.AnomalyClassifier = (*Classifier)(nil)

// Classifier reads the stored baseline and evaluates a value against it.
// It never writes to the repository.
type Classifier struct {
	baselines repository.BaselineRepository
	log       *logger.Logger
}

func NewClassifier(baselines repository.BaselineRepository, l *logger.Logger) *Classifier {
	if l == nil {
		l = logger.Nop()
	}
	return &Classifier{baselines: baselines, log: l}
}

func (c *Classifier) Classify(ctx context.Context, userID string, metric models.MetricType, value float64) (models.AnomalyResult, error) {
	entry, err := catalog.MustLookup(metric)
	if err != nil {
		return models.AnomalyResult{}, err
	}
	b, err := c.baselines.Get(ctx, userID, metric)
	if err != nil {
		c.log.Warn("baseline read failed", logger.User(userID), logger.Metric(string(metric)), logger.Error(err))
		return models.AnomalyResult{}, fmt.Errorf("get baseline: %w", err)
	}
	res := Evaluate(b, entry, value)
	res.UserID = userID
	return res, nil
}

// Evaluate is the pure classification rule. b may be nil.
func Evaluate(b *models.Baseline, entry catalog.Entry, value float64) models.AnomalyResult {
	res := models.AnomalyResult{MetricType: entry.Type, Value: value}
	if b == nil || b.SampleCount < MinSamples {
		return res
	}

	var dev float64
	if b.Value != 0 {
		dev = math.Abs(value-b.Value) / math.Abs(b.Value) * 100
	}
	var z float64
	if b.StdDev > 0 {
		z = (value - b.Value) / b.StdDev
	}
	absZ := math.Abs(z)
	used := b.Clone()
	res.DeviationPct = dev
	res.ZScore = z
	res.Baseline = &used

	var sev models.Severity
	switch {
	case dev >= b.CriticalThresholdPct || absZ >= criticalZ:
		sev = models.SeverityCritical
	case dev >= b.AlertThresholdPct || absZ >= highZ:
		sev = models.SeverityHigh
	case dev >= b.AlertThresholdPct*mediumAlertFactor || absZ >= mediumZ:
		sev = models.SeverityMedium
	case outOfRange(b, value):
		sev = models.SeverityLow
	default:
		return res
	}

	direction := "lower"
	if value > b.Value {
		direction = "higher"
	}
	msg := fmt.Sprintf("%s is %.0f%% %s than your baseline (%s vs %s)",
		entry.Label, dev, direction, entry.FormatValue(value), entry.FormatValue(b.Value))
	rec := entry.Recommendation(direction)

	res.IsAnomaly = true
	res.Severity = models.SeverityPtr(sev)
	res.Direction = direction
	res.Message = &msg
	res.Recommendation = &rec
	return res
}

func outOfRange(b *models.Baseline, value float64) bool {
	return (b.NormalRangeMin != nil && value < *b.NormalRangeMin) ||
		(b.NormalRangeMax != nil && value > *b.NormalRangeMax)
}
