package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Check execution metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resmon_checks_total",
			Help: "Total executed checks by resource and resulting status",
		},
		[]string{"resource", "status"},
	)
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resmon_check_duration_seconds",
			Help:    "Duration of check executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	// Result cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resmon_cache_hits_total",
			Help: "Checks served from the result cache",
		},
	)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resmon_cache_misses_total",
			Help: "Checks that required fresh execution",
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resmon_notifications_total",
			Help: "Health issue events emitted by resource",
		},
		[]string{"resource"},
	)
)
