package baseline

import (
	"math"
	"time"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/services/catalog"
)

const (
	// DefaultWindowDays is the rolling window used when callers pass none.
	DefaultWindowDays = 14

	trendThresholdFactor = 0.5
)

// Update folds value into existing and returns the next baseline.
// existing is never modified; a nil existing starts a new baseline seeded
// from the catalog entry. The returned Version equals the version read so it
// can be handed to BaselineRepository.Upsert as the expected token.
//
// The sample count is capped at 2*windowDays but old samples are never
// expired, so extreme values keep influencing the estimate once the cap is hit.
func Update(existing *models.Baseline, userID string, entry catalog.Entry, value float64, windowDays int, now time.Time) models.Baseline {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if existing == nil {
		return models.Baseline{
			UserID:               userID,
			MetricType:           entry.Type,
			Value:                value,
			StdDev:               0,
			SampleCount:          1,
			WindowDays:           windowDays,
			AlertThresholdPct:    entry.AlertThresholdPct,
			CriticalThresholdPct: entry.CriticalThresholdPct,
			NormalRangeMin:       models.CopyFloat(entry.NormalRangeMin),
			NormalRangeMax:       models.CopyFloat(entry.NormalRangeMax),
			TrendDirection:       models.TrendStable,
			TrendDurationDays:    0,
			LastUpdated:          now,
		}
	}

	next := existing.Clone()

	n := existing.SampleCount
	if limit := windowDays * 2; n > limit {
		n = limit
	}
	delta := value - existing.Value
	mean := existing.Value + delta/float64(n+1)
	var variance float64
	if n > 0 {
		variance = (float64(n-1)*existing.StdDev*existing.StdDev + delta*(value-mean)) / float64(n)
	}
	next.Value = mean
	next.StdDev = math.Sqrt(math.Max(0, variance))
	next.SampleCount = n + 1
	next.WindowDays = windowDays

	dir := Trend(existing, entry.HigherIsBetter, value)
	if dir == existing.TrendDirection {
		next.TrendDurationDays = existing.TrendDurationDays + 1
	} else {
		next.TrendDurationDays = 1
	}
	next.TrendDirection = dir
	next.LastUpdated = now
	return next
}

// Trend maps the move from existing.Value to value onto a direction.
// Moves within half a standard deviation are stable.
func Trend(existing *models.Baseline, higherIsBetter bool, value float64) models.TrendDirection {
	diff := value - existing.Value
	if math.Abs(diff) <= existing.StdDev*trendThresholdFactor {
		return models.TrendStable
	}
	if (diff > 0) == higherIsBetter {
		return models.TrendImproving
	}
	return models.TrendDeclining
}

// ApplyOverride returns a copy of b with the non-nil override fields applied.
func ApplyOverride(b models.Baseline, o models.ThresholdOverride, now time.Time) models.Baseline {
	next := b.Clone()
	if o.AlertThresholdPct != nil {
		next.AlertThresholdPct = *o.AlertThresholdPct
	}
	if o.CriticalThresholdPct != nil {
		next.CriticalThresholdPct = *o.CriticalThresholdPct
	}
	if o.NormalRangeMin != nil {
		next.NormalRangeMin = models.CopyFloat(o.NormalRangeMin)
	}
	if o.NormalRangeMax != nil {
		next.NormalRangeMax = models.CopyFloat(o.NormalRangeMax)
	}
	next.LastUpdated = now
	return next
}
