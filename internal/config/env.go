package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/trackauth/mlflow-secrets-auth/internal/credential"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
)

// Environment variable names. Vault connection variables follow the standard
// Vault client names; the rest carry the MLFLOW_ prefix of the consuming
// tracking client.
const (
	EnvEnable       = "MLFLOW_SECRETS_AUTH_ENABLE"
	EnvHeaderName   = "MLFLOW_AUTH_HEADER_NAME"
	EnvAllowedHosts = "MLFLOW_SECRETS_ALLOWED_HOSTS"
	EnvMaxRetries   = "MLFLOW_SECRETS_AUTH_MAX_RETRIES"
	EnvBreaker      = "MLFLOW_SECRETS_AUTH_BREAKER"

	EnvVaultAddr       = "VAULT_ADDR"
	EnvVaultToken      = "VAULT_TOKEN"
	EnvVaultRoleID     = "VAULT_ROLE_ID"
	EnvVaultSecretID   = "VAULT_SECRET_ID"
	EnvVaultSecretPath = "MLFLOW_VAULT_SECRET_PATH"
	EnvVaultAuthMode   = "MLFLOW_VAULT_AUTH_MODE"
	EnvVaultTTL        = "MLFLOW_VAULT_TTL_SEC"

	EnvAWSRegion   = "AWS_REGION"
	EnvAWSSecretID = "MLFLOW_AWS_SECRET_ID"
	EnvAWSAuthMode = "MLFLOW_AWS_AUTH_MODE"
	EnvAWSTTL      = "MLFLOW_AWS_TTL_SEC"

	EnvAzureVaultURL   = "AZURE_KEY_VAULT_URL"
	EnvAzureSecretName = "MLFLOW_AZURE_SECRET_NAME"
	EnvAzureAuthMode   = "MLFLOW_AZURE_AUTH_MODE"
	EnvAzureTTL        = "MLFLOW_AZURE_TTL_SEC"
)

// FromEnv builds a Config snapshot from the environment. Values are read
// once; later environment changes do not affect the snapshot. Malformed
// numeric or boolean values fall back to defaults rather than failing.
func FromEnv() *Config {
	return &Config{
		EnabledBackends: splitAndTrim(os.Getenv(EnvEnable)),
		AuthHeaderName:  getEnvOrDefault(EnvHeaderName, DefaultAuthHeaderName),
		AllowedHosts:    splitAndTrim(os.Getenv(EnvAllowedHosts)),
		MaxRetries:      getEnvInt(EnvMaxRetries, DefaultMaxRetries),
		LogLevel:        getEnvOrDefault(observability.EnvLogLevel, "info"),
		LogFormat:       getEnvOrDefault(observability.EnvLogFormat, "json"),
		BreakerEnabled:  getEnvBool(EnvBreaker, false),
		OTLPEndpoint:    os.Getenv(observability.EnvOTLPEndpoint),

		Vault: &VaultConfig{
			Address:    os.Getenv(EnvVaultAddr),
			Token:      os.Getenv(EnvVaultToken),
			RoleID:     os.Getenv(EnvVaultRoleID),
			SecretID:   os.Getenv(EnvVaultSecretID),
			SecretPath: os.Getenv(EnvVaultSecretPath),
			AuthMode:   credential.AuthMode(os.Getenv(EnvVaultAuthMode)),
			TTLSeconds: getEnvInt(EnvVaultTTL, 0),
		},

		AWS: &AWSConfig{
			Region:     os.Getenv(EnvAWSRegion),
			SecretID:   os.Getenv(EnvAWSSecretID),
			AuthMode:   credential.AuthMode(os.Getenv(EnvAWSAuthMode)),
			TTLSeconds: getEnvInt(EnvAWSTTL, 0),
		},

		Azure: &AzureConfig{
			VaultURL:   os.Getenv(EnvAzureVaultURL),
			SecretName: os.Getenv(EnvAzureSecretName),
			AuthMode:   credential.AuthMode(os.Getenv(EnvAzureAuthMode)),
			TTLSeconds: getEnvInt(EnvAzureTTL, 0),
		},
	}
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a boolean or a default.
// Accepts "true", "1", "yes", "on" (case-insensitive) as true values.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

// splitAndTrim splits a comma-separated value into trimmed non-empty
// elements. An unset or blank value yields nil.
func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
