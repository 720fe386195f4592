// Package secretsauth resolves HTTP authentication credentials for MLflow
// tracking requests from an external secret store.
//
// A Provider selects the first enabled backend (Vault, AWS Secrets
// Manager, Azure Key Vault, in that order) on first use, then serves
// credentials from a TTL cache, fetching with retry and backoff on misses.
// Which hosts may receive credentials is controlled by a glob allowlist.
// Resolution is fail-open: when anything goes wrong the request proceeds
// unauthenticated.
//
// Typical use wires the provider into an HTTP client:
//
//	provider := secretsauth.New()
//	client := secretsauth.NewHTTPClient(provider)
//	resp, err := client.Get("https://mlflow.example.com/api/2.0/mlflow/experiments/list")
//
// The transport injects the credential into the configured header and, on a
// 401 or 403 response, refreshes the credential and retries once.
//
// Configuration is read from the environment on first use; see the
// internal/config package for the full variable surface. The entry points
// are MLFLOW_SECRETS_AUTH_ENABLE (comma-separated backend names) and
// MLFLOW_SECRETS_ALLOWED_HOSTS.
package secretsauth
