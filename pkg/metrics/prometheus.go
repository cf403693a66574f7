package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"VitalPulse/internal/domain/repository"
)

var _ repository.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	baselineUpdates *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	anomalies       *prometheus.CounterVec
	patternBreaks   *prometheus.CounterVec
	snapshots       *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// New returns the recorder on the default registry, registering it on first use.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegisterer(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegisterer registers on reg, so tests can use a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		baselineUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitalpulse_baseline_updates_total",
				Help: "Baseline updates committed, by metric",
			},
			[]string{"metric"},
		),
		conflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitalpulse_baseline_conflicts_total",
				Help: "Optimistic concurrency conflicts on baseline writes",
			},
			[]string{"metric"},
		),
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitalpulse_anomalies_total",
				Help: "Anomalies found while building snapshots",
			},
			[]string{"metric", "severity"},
		),
		patternBreaks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitalpulse_pattern_breaks_total",
				Help: "Pattern breaks found while building snapshots",
			},
			[]string{"pattern", "severity"},
		),
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitalpulse_snapshots_total",
				Help: "Snapshots built, by overall health",
			},
			[]string{"overall", "partial"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitalpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vitalpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordBaselineUpdate(metric string) {
	r.baselineUpdates.WithLabelValues(metric).Inc()
}

func (r *Recorder) RecordConflict(metric string) {
	r.conflicts.WithLabelValues(metric).Inc()
}

func (r *Recorder) RecordAnomaly(metric, severity string) {
	r.anomalies.WithLabelValues(metric, severity).Inc()
}

func (r *Recorder) RecordPatternBreak(patternType, severity string) {
	r.patternBreaks.WithLabelValues(patternType, severity).Inc()
}

func (r *Recorder) RecordSnapshot(overall string, partial bool) {
	r.snapshots.WithLabelValues(overall, strconv.FormatBool(partial)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
