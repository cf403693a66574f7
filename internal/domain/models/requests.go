package models

// Requests for the health HTTP endpoints.

type ObservationRequest struct {
	UserID     string   `json:"user_id" validate:"required"`
	Metric     string   `json:"metric" validate:"required"`
	Value      *float64 `json:"value" validate:"required"`
	Timestamp  string   `json:"ts"`
	Source     string   `json:"source" default:"api"`
	WindowDays int      `json:"window_days" validate:"omitempty,gte=1,lte=365"`
}

type BaselineRequest struct {
	UserID string `param:"user_id" validate:"required"`
	Metric string `param:"metric" validate:"required"`
}

type ThresholdOverrideRequest struct {
	UserID               string   `param:"user_id" json:"-" validate:"required"`
	Metric               string   `param:"metric" json:"-" validate:"required"`
	AlertThresholdPct    *float64 `json:"alert_threshold_pct" validate:"omitempty,gt=0,lte=100"`
	CriticalThresholdPct *float64 `json:"critical_threshold_pct" validate:"omitempty,gt=0,lte=100"`
	NormalRangeMin       *float64 `json:"normal_range_min"`
	NormalRangeMax       *float64 `json:"normal_range_max"`
}

type ClassifyRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required"`
	Metric string `query:"metric" json:"metric" validate:"required"`
	Value  string `query:"value" json:"value" validate:"required,numeric"`
}

type PatternBreaksRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required"`
}

type SnapshotRequest struct {
	UserID  string `query:"user_id" json:"user_id" validate:"required"`
	Refresh bool   `query:"refresh" json:"refresh"`
}

type SnapshotJobRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
