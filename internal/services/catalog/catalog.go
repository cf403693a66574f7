package catalog

import (
	"fmt"

	"VitalPulse/internal/domain/models"
)

// Entry holds the static defaults for one metric type.
type Entry struct {
	Type                 models.MetricType `json:"type"`
	Label                string            `json:"label"`
	Unit                 string            `json:"unit"`
	Precision            int               `json:"precision"`
	AlertThresholdPct    float64           `json:"alert_threshold_pct"`
	CriticalThresholdPct float64           `json:"critical_threshold_pct"`
	NormalRangeMin       *float64          `json:"normal_range_min,omitempty"`
	NormalRangeMax       *float64          `json:"normal_range_max,omitempty"`
	HigherIsBetter       bool              `json:"higher_is_better"`
	RecommendHigh        string            `json:"recommend_high"`
	RecommendLow         string            `json:"recommend_low"`
}

func bound(v float64) *float64 { return &v }

// order is the iteration order for snapshots and listings.
var order = []models.MetricType{
	models.MetricSleepScore,
	models.MetricSleepDuration,
	models.MetricHRV,
	models.MetricRestingHR,
	models.MetricRecoveryScore,
	models.MetricSteps,
	models.MetricActiveMinutes,
	models.MetricGlucoseAvg,
	models.MetricTimeInRange,
	models.MetricHydration,
	models.MetricSpO2,
	models.MetricBodyTemp,
	models.MetricWeight,
	models.MetricStressLevel,
	models.MetricMeetingHours,
	models.MetricFocusTime,
}

var entries = map[models.MetricType]Entry{
	models.MetricSleepScore: {
		Label: "Sleep score", Unit: "pts", AlertThresholdPct: 15, CriticalThresholdPct: 30, HigherIsBetter: true,
		RecommendHigh: "Great sleep. Keep the same bedtime routine.",
		RecommendLow:  "Aim for a consistent bedtime and limit screens in the last hour before sleep.",
	},
	models.MetricSleepDuration: {
		Label: "Sleep duration", Unit: "h", Precision: 1, AlertThresholdPct: 20, CriticalThresholdPct: 35, HigherIsBetter: true,
		RecommendHigh: "Longer sleep than usual. Check whether you are recovering from strain or illness.",
		RecommendLow:  "You slept less than usual. Try an earlier wind-down tonight.",
	},
	models.MetricHRV: {
		Label: "Heart rate variability", Unit: "ms", AlertThresholdPct: 20, CriticalThresholdPct: 35, HigherIsBetter: true,
		RecommendHigh: "Recovery looks strong. A good day for harder training.",
		RecommendLow:  "Your body may be under stress. Prioritize rest, hydration and light activity today.",
	},
	models.MetricRestingHR: {
		Label: "Resting heart rate", Unit: "bpm", AlertThresholdPct: 10, CriticalThresholdPct: 20,
		NormalRangeMin: bound(40), NormalRangeMax: bound(100),
		RecommendHigh: "Elevated resting heart rate can signal fatigue or illness. Take it easy and hydrate.",
		RecommendLow:  "Lower resting heart rate than usual. Usually a sign of good recovery.",
	},
	models.MetricRecoveryScore: {
		Label: "Recovery score", Unit: "%", AlertThresholdPct: 20, CriticalThresholdPct: 35, HigherIsBetter: true,
		RecommendHigh: "Well recovered. You can push intensity today.",
		RecommendLow:  "Recovery is low. Favor mobility work or rest over intense training.",
	},
	models.MetricSteps: {
		Label: "Steps", Unit: "steps", AlertThresholdPct: 40, CriticalThresholdPct: 60, HigherIsBetter: true,
		RecommendHigh: "Very active day. Remember to stretch and refuel.",
		RecommendLow:  "Fewer steps than usual. A short walk can help.",
	},
	models.MetricActiveMinutes: {
		Label: "Active minutes", Unit: "min", AlertThresholdPct: 40, CriticalThresholdPct: 60, HigherIsBetter: true,
		RecommendHigh: "More activity than usual. Balance it with recovery.",
		RecommendLow:  "Less active than usual. Try to fit in some movement.",
	},
	models.MetricGlucoseAvg: {
		Label: "Average glucose", Unit: "mg/dL", AlertThresholdPct: 15, CriticalThresholdPct: 30,
		NormalRangeMin: bound(70), NormalRangeMax: bound(140), HigherIsBetter: false,
		RecommendHigh: "Glucose is running high. Review recent meals and consider a walk after eating.",
		RecommendLow:  "Glucose is running low. Keep a fast-acting snack nearby.",
	},
	models.MetricTimeInRange: {
		Label: "Time in range", Unit: "%", AlertThresholdPct: 10, CriticalThresholdPct: 20,
		NormalRangeMin: bound(70), NormalRangeMax: bound(100), HigherIsBetter: true,
		RecommendHigh: "Excellent glucose control.",
		RecommendLow:  "Less time in range than usual. Review meal timing and medication.",
	},
	models.MetricHydration: {
		Label: "Hydration", Unit: "ml", AlertThresholdPct: 30, CriticalThresholdPct: 50, HigherIsBetter: true,
		RecommendHigh: "Well hydrated.",
		RecommendLow:  "You drank less than usual. Keep a water bottle within reach.",
	},
	models.MetricSpO2: {
		Label: "Blood oxygen", Unit: "%", AlertThresholdPct: 3, CriticalThresholdPct: 6,
		NormalRangeMin: bound(92), NormalRangeMax: bound(100), HigherIsBetter: true,
		RecommendHigh: "Blood oxygen looks good.",
		RecommendLow:  "Blood oxygen is lower than usual. Contact a clinician if you feel short of breath.",
	},
	models.MetricBodyTemp: {
		Label: "Body temperature", Unit: "°C", Precision: 1, AlertThresholdPct: 1.5, CriticalThresholdPct: 3,
		NormalRangeMin: bound(36.1), NormalRangeMax: bound(37.5),
		RecommendHigh: "Temperature is elevated. Rest and monitor for symptoms.",
		RecommendLow:  "Temperature is lower than usual. Stay warm and recheck later.",
	},
	models.MetricWeight: {
		Label: "Weight", Unit: "kg", Precision: 1, AlertThresholdPct: 3, CriticalThresholdPct: 5,
		RecommendHigh: "Weight is up from your baseline. Sudden gains can mean fluid retention.",
		RecommendLow:  "Weight is down from your baseline. Make sure you are eating enough.",
	},
	models.MetricStressLevel: {
		Label: "Stress level", Unit: "pts", AlertThresholdPct: 25, CriticalThresholdPct: 40,
		RecommendHigh: "Stress is higher than usual. Try a short breathing exercise or a break outside.",
		RecommendLow:  "Stress is lower than usual.",
	},
	models.MetricMeetingHours: {
		Label: "Meeting hours", Unit: "h", Precision: 1, AlertThresholdPct: 30, CriticalThresholdPct: 50,
		RecommendHigh: "Meeting load is heavy. Block some focus time tomorrow.",
		RecommendLow:  "Lighter meeting day than usual.",
	},
	models.MetricFocusTime: {
		Label: "Focus time", Unit: "h", Precision: 1, AlertThresholdPct: 30, CriticalThresholdPct: 50, HigherIsBetter: true,
		RecommendHigh: "Plenty of deep work today.",
		RecommendLow:  "Less focus time than usual. Protect a block on your calendar.",
	},
}

func init() {
	for t, e := range entries {
		e.Type = t
		entries[t] = e
	}
}

// Lookup returns the catalog entry for t.
func Lookup(t models.MetricType) (Entry, bool) {
	e, ok := entries[t]
	if !ok {
		return Entry{}, false
	}
	e.NormalRangeMin = models.CopyFloat(e.NormalRangeMin)
	e.NormalRangeMax = models.CopyFloat(e.NormalRangeMax)
	return e, true
}

// MustLookup is Lookup returning models.ErrUnknownMetric for unknown types.
func MustLookup(t models.MetricType) (Entry, error) {
	e, ok := Lookup(t)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", models.ErrUnknownMetric, t)
	}
	return e, nil
}

// Types lists every catalog metric in stable order.
func Types() []models.MetricType {
	out := make([]models.MetricType, len(order))
	copy(out, order)
	return out
}

// All returns every entry in stable order.
func All() []Entry {
	out := make([]Entry, 0, len(order))
	for _, t := range order {
		e, _ := Lookup(t)
		out = append(out, e)
	}
	return out
}

// HigherIsBetter reports the polarity of t. Unknown metrics are treated as neutral.
func HigherIsBetter(t models.MetricType) bool {
	return entries[t].HigherIsBetter
}

// Recommendation picks the advice for a deviation in the given direction.
func (e Entry) Recommendation(direction string) string {
	if direction == "higher" {
		return e.RecommendHigh
	}
	return e.RecommendLow
}

// FormatValue renders v with the metric's precision and unit.
func (e Entry) FormatValue(v float64) string {
	s := fmt.Sprintf("%.*f", e.Precision, v)
	switch e.Unit {
	case "":
		return s
	case "%":
		return s + "%"
	default:
		return s + " " + e.Unit
	}
}
