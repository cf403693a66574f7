package models

import "time"

// OverallHealth is the aggregated status of a snapshot.
type OverallHealth string

const (
	HealthGood      OverallHealth = "good"
	HealthAttention OverallHealth = "attention"
	HealthConcern   OverallHealth = "concern"
	HealthCritical  OverallHealth = "critical"
)

// HealthSnapshot is the result of one snapshot build.
type HealthSnapshot struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Metrics       map[MetricType]float64 `json:"metrics"`
	Anomalies     []AnomalyResult        `json:"anomalies"`
	PatternBreaks []PatternBreak         `json:"pattern_breaks"`
	OverallHealth OverallHealth          `json:"overall_health"`
	Partial       bool                   `json:"partial"`
	Failures      []string               `json:"failures,omitempty"`
}

// OverallHealthFor applies strict severity precedence. Low and info never
// raise the status above good.
func OverallHealthFor(anomalies []AnomalyResult, breaks []PatternBreak) OverallHealth {
	worst := -1
	for _, a := range anomalies {
		if a.IsAnomaly && a.Severity != nil && a.Severity.Rank() > worst {
			worst = a.Severity.Rank()
		}
	}
	for _, pb := range breaks {
		if pb.Severity.Rank() > worst {
			worst = pb.Severity.Rank()
		}
	}
	switch {
	case worst >= SeverityCritical.Rank():
		return HealthCritical
	case worst >= SeverityHigh.Rank():
		return HealthConcern
	case worst >= SeverityMedium.Rank():
		return HealthAttention
	default:
		return HealthGood
	}
}
