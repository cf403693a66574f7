package models

import "time"

// Observation is one raw metric value reported by a device or integration.
type Observation struct {
	UserID     string     `json:"user_id"`
	MetricType MetricType `json:"metric"`
	Value      float64    `json:"value"`
	Timestamp  time.Time  `json:"ts"`
	Source     string     `json:"source,omitempty"`
	WindowDays int        `json:"window_days,omitempty"`
}

// ActivityRecord is the latest daily activity total.
type ActivityRecord struct {
	// Day is the user's local calendar date; only Y/M/D are meaningful.
	Day        time.Time
	Steps      float64
	RecordedAt time.Time
}

// SleepRecord is one logged sleep session.
type SleepRecord struct {
	Start         time.Time
	End           time.Time
	DurationHours float64
	Score         float64
}

// MedicationDose is a scheduled dose; ConfirmedAt is nil until the user confirms it.
type MedicationDose struct {
	ID          string
	Name        string
	ScheduledAt time.Time
	ConfirmedAt *time.Time
}
