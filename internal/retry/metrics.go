package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts by operation",
		},
		[]string{"operation"},
	)

	exhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlflow",
			Subsystem: "secrets_auth",
			Name:      "retry_exhausted_total",
			Help:      "Total number of operations that failed after all retry attempts",
		},
		[]string{"operation"},
	)
)

// RecordAttempt records a single retry attempt for the named operation.
func RecordAttempt(operation string) {
	attemptsTotal.WithLabelValues(operation).Inc()
}

// RecordExhausted records an operation that failed after all attempts.
func RecordExhausted(operation string) {
	exhaustedTotal.WithLabelValues(operation).Inc()
}
