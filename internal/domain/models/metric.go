package models

// MetricType identifies a health signal tracked per user.
type MetricType string

const (
	MetricSleepScore    MetricType = "sleep_score"
	MetricSleepDuration MetricType = "sleep_duration"
	MetricHRV           MetricType = "hrv"
	MetricRestingHR     MetricType = "resting_hr"
	MetricSteps         MetricType = "steps"
	MetricActiveMinutes MetricType = "active_minutes"
	MetricGlucoseAvg    MetricType = "glucose_avg"
	MetricTimeInRange   MetricType = "time_in_range"
	MetricHydration     MetricType = "hydration"
	MetricRecoveryScore MetricType = "recovery_score"
	MetricSpO2          MetricType = "spo2"
	MetricBodyTemp      MetricType = "body_temperature"
	MetricWeight        MetricType = "weight"
	MetricStressLevel   MetricType = "stress_level"
	MetricMeetingHours  MetricType = "meeting_hours"
	MetricFocusTime     MetricType = "focus_time"
)

// Severity grades anomalies and pattern breaks.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank orders severities; higher is worse. Unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// SeverityPtr returns a pointer to s.
func SeverityPtr(s Severity) *Severity { return &s }

// TrendDirection is the direction of the latest baseline movement.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)
