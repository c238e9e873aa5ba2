package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream request metrics
	UplinkRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uplink_requests_total",
			Help: "Total number of requests issued to uplinks",
		},
		[]string{"uplink", "operation", "status"},
	)

	UplinkRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uplink_request_duration_seconds",
			Help:    "Uplink request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"uplink", "operation"},
	)

	// Health metrics
	UplinkOffline = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uplink_offline",
			Help: "Whether the uplink circuit breaker is open (1) or closed (0)",
		},
		[]string{"uplink"},
	)

	UplinkFailedRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uplink_failed_requests",
			Help: "Current consecutive failure count per uplink",
		},
		[]string{"uplink"},
	)
)

// RecordRequest records the outcome of a single uplink request attempt
func RecordRequest(uplink, operation, status string, seconds float64) {
	UplinkRequestsTotal.WithLabelValues(uplink, operation, status).Inc()
	UplinkRequestDuration.WithLabelValues(uplink, operation).Observe(seconds)
}

// UpdateHealth publishes the current breaker state for an uplink
func UpdateHealth(uplink string, offline bool, failedRequests int) {
	v := 0.0
	if offline {
		v = 1.0
	}
	UplinkOffline.WithLabelValues(uplink).Set(v)
	UplinkFailedRequests.WithLabelValues(uplink).Set(float64(failedRequests))
}
