package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for credential resolution.
var (
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of secret fetch operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "result"},
	)

	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "fetch_total",
			Help:      "Total number of secret fetch operations",
		},
		[]string{"backend", "result"},
	)

	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "cache_events_total",
			Help:      "Total number of secret cache lookups by outcome",
		},
		[]string{"event"},
	)

	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "refresh_total",
			Help:      "Total number of credential refreshes triggered by auth failures",
		},
		[]string{"result"},
	)

	backendActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "backend_active",
			Help:      "Whether the named backend is the active credential source (1) or not (0)",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(
		fetchDuration,
		fetchTotal,
		cacheEvents,
		refreshTotal,
		backendActive,
	)
}

// RecordFetch records a secret fetch attempt against the named backend.
func RecordFetch(backend string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	fetchDuration.WithLabelValues(backend, result).Observe(duration.Seconds())
	fetchTotal.WithLabelValues(backend, result).Inc()
}

// RecordCacheHit records a secret cache hit.
func RecordCacheHit() {
	cacheEvents.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a secret cache miss.
func RecordCacheMiss() {
	cacheEvents.WithLabelValues("miss").Inc()
}

// RecordRefresh records an auth-failure-triggered credential refresh.
func RecordRefresh(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	refreshTotal.WithLabelValues(result).Inc()
}

// SetBackendActive marks the named backend as the active credential source.
func SetBackendActive(backend string, active bool) {
	value := 0.0
	if active {
		value = 1.0
	}
	backendActive.WithLabelValues(backend).Set(value)
}
