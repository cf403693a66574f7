package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vitalpulse",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of health API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalpulse",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by health API endpoint and code",
		},
		[]string{"endpoint", "code"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalpulse",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-user limiter",
		},
		[]string{"endpoint"},
	)

	SnapshotCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalpulse",
			Subsystem: "api",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot reads by cache result",
		},
		[]string{"result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, RateLimited, SnapshotCache)
	})
}
