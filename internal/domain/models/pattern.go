package models

import "time"

// Pattern break types.
const (
	PatternNoActivityData   = "no_activity_data"
	PatternLowActivity      = "low_activity"
	PatternNoSleepData      = "no_sleep_data"
	PatternMedicationMissed = "medication_missed"
	PatternSyncGap          = "sync_gap"
)

// NeverObservedDays marks a signal that has never been recorded.
const NeverObservedDays = 999

// PatternBreak is an anomaly defined by the absence of an expected signal.
type PatternBreak struct {
	PatternType    string     `json:"pattern_type"`
	Description    string     `json:"description"`
	Severity       Severity   `json:"severity"`
	LastOccurrence *time.Time `json:"last_occurrence,omitempty"`
	DaysMissed     int        `json:"days_missed"`
}
