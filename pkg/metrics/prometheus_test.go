package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordConflict("hrv")
	r.RecordConflict("hrv")
	r.RecordAnomaly("hrv", "critical")
	r.RecordSnapshot("critical", true)
	r.RecordError("snapshot_task")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.conflicts.WithLabelValues("hrv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.anomalies.WithLabelValues("hrv", "critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.snapshots.WithLabelValues("critical", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.snapshots.WithLabelValues("critical", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("snapshot_task")))
}

func TestNewRegistersOnce(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Same(t, New(), New())
	})
}
