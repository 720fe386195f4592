// Package observability provides logging, metrics, and tracing for the
// secrets auth plugin.
//
// # Logging
//
// The Logger interface provides structured logging over zap:
//
//	logger := observability.NewLoggerFromEnv()
//	defer logger.Sync()
//
//	logger.Info("credential resolved",
//	    observability.String("backend", "vault"),
//	    observability.Duration("elapsed", elapsed),
//	)
//
// Log level and format are read from MLFLOW_SECRETS_AUTH_LOG_LEVEL and
// MLFLOW_SECRETS_AUTH_LOG_FORMAT. Output goes to stderr so the host
// application's stdout stays clean.
//
// # Metrics
//
// Prometheus metrics are registered on the default registry:
//
//   - mlflow_secrets_auth_fetch_total{backend,result}
//   - mlflow_secrets_auth_fetch_duration_seconds{backend,result}
//   - mlflow_secrets_auth_cache_events_total{event}
//   - mlflow_secrets_auth_refresh_total{result}
//   - mlflow_secrets_auth_backend_active{backend}
//
// # Tracing
//
// Span export is opt-in: set MLFLOW_SECRETS_AUTH_OTLP_ENDPOINT to an OTLP
// gRPC endpoint. Without it, spans are no-ops and add no overhead worth
// measuring to the request path.
package observability
