package models

import "time"

// Baseline is the rolling statistical profile for one (user, metric) pair.
type Baseline struct {
	UserID               string         `json:"user_id"`
	MetricType           MetricType     `json:"metric_type"`
	Value                float64        `json:"value"`
	StdDev               float64        `json:"std_dev"`
	SampleCount          int            `json:"sample_count"`
	WindowDays           int            `json:"window_days"`
	AlertThresholdPct    float64        `json:"alert_threshold_pct"`
	CriticalThresholdPct float64        `json:"critical_threshold_pct"`
	NormalRangeMin       *float64       `json:"normal_range_min,omitempty"`
	NormalRangeMax       *float64       `json:"normal_range_max,omitempty"`
	TrendDirection       TrendDirection `json:"trend_direction"`
	TrendDurationDays    int            `json:"trend_duration_days"`
	LastUpdated          time.Time      `json:"last_updated"`

	// Version is the optimistic concurrency token. Zero means never persisted.
	Version int64 `json:"version"`
}

// Clone returns a deep copy so callers can't alias the range bounds.
func (b Baseline) Clone() Baseline {
	out := b
	out.NormalRangeMin = CopyFloat(b.NormalRangeMin)
	out.NormalRangeMax = CopyFloat(b.NormalRangeMax)
	return out
}

// CopyFloat copies an optional float.
func CopyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ThresholdOverride replaces per-baseline thresholds. Nil fields keep the current value.
type ThresholdOverride struct {
	AlertThresholdPct    *float64
	CriticalThresholdPct *float64
	NormalRangeMin       *float64
	NormalRangeMax       *float64
}
