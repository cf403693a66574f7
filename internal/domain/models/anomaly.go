package models

// AnomalyResult is the classification of one observation against its baseline.
type AnomalyResult struct {
	UserID         string     `json:"user_id"`
	MetricType     MetricType `json:"metric_type"`
	Value          float64    `json:"value"`
	IsAnomaly      bool       `json:"is_anomaly"`
	Severity       *Severity  `json:"severity,omitempty"`
	DeviationPct   float64    `json:"deviation_pct"`
	ZScore         float64    `json:"z_score"`
	Direction      string     `json:"direction,omitempty"` // "higher" | "lower"
	Message        *string    `json:"message,omitempty"`
	Recommendation *string    `json:"recommendation,omitempty"`
	Baseline       *Baseline  `json:"baseline,omitempty"`
}

// SeverityOrNone returns the severity, or "" when the result is not anomalous.
func (r AnomalyResult) SeverityOrNone() Severity {
	if r.Severity == nil {
		return ""
	}
	return *r.Severity
}
