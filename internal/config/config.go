package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
	"github.com/trackauth/mlflow-secrets-auth/internal/credential"
)

// Backend name constants, in factory priority order.
const (
	// BackendVault is the HashiCorp Vault backend.
	BackendVault = "vault"

	// BackendAWS is the AWS Secrets Manager backend.
	BackendAWS = "aws-secrets-manager"

	// BackendAzure is the Azure Key Vault backend.
	BackendAzure = "azure-key-vault"
)

// TTL bounds in seconds. Values outside the range are clamped; unset or
// non-positive values fall back to the default.
const (
	DefaultTTLSeconds = 300
	MinTTLSeconds     = 60
	MaxTTLSeconds     = 3600
)

// DefaultAuthHeaderName is the header credentials are rendered into when
// MLFLOW_AUTH_HEADER_NAME is not set.
const DefaultAuthHeaderName = "Authorization"

// DefaultMaxRetries bounds fetch retries when MLFLOW_SECRETS_AUTH_MAX_RETRIES
// is not set.
const DefaultMaxRetries = 3

// Config is the full configuration snapshot, read once from the environment
// at provider activation. yaml tags feed the CLI config dump.
type Config struct {
	// EnabledBackends lists the backend names that may serve credentials.
	EnabledBackends []string `yaml:"enabledBackends" json:"enabledBackends"`

	// AuthHeaderName is the header credentials are rendered into.
	// Defaults to "Authorization".
	AuthHeaderName string `yaml:"authHeaderName,omitempty" json:"authHeaderName,omitempty"`

	// AllowedHosts is the hostname allowlist glob set. Empty allows all hosts.
	AllowedHosts []string `yaml:"allowedHosts,omitempty" json:"allowedHosts,omitempty"`

	// MaxRetries is the fetch retry bound. Defaults to 3.
	MaxRetries int `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`

	// LogLevel is the logger level (debug|info|warn|error). Defaults to info.
	LogLevel string `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`

	// LogFormat is the logger encoding (json|console). Defaults to json.
	LogFormat string `yaml:"logFormat,omitempty" json:"logFormat,omitempty"`

	// BreakerEnabled turns on the fetch circuit breaker.
	BreakerEnabled bool `yaml:"breakerEnabled,omitempty" json:"breakerEnabled,omitempty"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`

	// Vault backend configuration.
	Vault *VaultConfig `yaml:"vault,omitempty" json:"vault,omitempty"`

	// AWS Secrets Manager backend configuration.
	AWS *AWSConfig `yaml:"aws,omitempty" json:"aws,omitempty"`

	// Azure Key Vault backend configuration.
	Azure *AzureConfig `yaml:"azure,omitempty" json:"azure,omitempty"`
}

// VaultConfig configures the HashiCorp Vault backend.
type VaultConfig struct {
	// Address is the Vault server address.
	Address string `yaml:"address" json:"address"`

	// Token for token authentication.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// RoleID and SecretID for AppRole authentication, used when Token is
	// not set.
	RoleID   string `yaml:"roleId,omitempty" json:"roleId,omitempty"`
	SecretID string `yaml:"secretId,omitempty" json:"secretId,omitempty"`

	// SecretPath is the KV v2 path holding the credential payload.
	SecretPath string `yaml:"secretPath" json:"secretPath"`

	// AuthMode selects the credential shape. Defaults to bearer.
	AuthMode credential.AuthMode `yaml:"authMode,omitempty" json:"authMode,omitempty"`

	// TTLSeconds is the cache lifetime for fetched payloads.
	// Defaults to 300, clamped to [60, 3600].
	TTLSeconds int `yaml:"ttlSeconds,omitempty" json:"ttlSeconds,omitempty"`
}

// AWSConfig configures the AWS Secrets Manager backend.
type AWSConfig struct {
	// Region is the AWS region hosting the secret.
	Region string `yaml:"region" json:"region"`

	// SecretID is the secret name or ARN.
	SecretID string `yaml:"secretId" json:"secretId"`

	// AuthMode selects the credential shape. Defaults to bearer.
	AuthMode credential.AuthMode `yaml:"authMode,omitempty" json:"authMode,omitempty"`

	// TTLSeconds is the cache lifetime for fetched payloads.
	// Defaults to 300, clamped to [60, 3600].
	TTLSeconds int `yaml:"ttlSeconds,omitempty" json:"ttlSeconds,omitempty"`
}

// AzureConfig configures the Azure Key Vault backend.
type AzureConfig struct {
	// VaultURL is the Key Vault URL (https://<name>.vault.azure.net).
	VaultURL string `yaml:"vaultUrl" json:"vaultUrl"`

	// SecretName is the secret name within the vault.
	SecretName string `yaml:"secretName" json:"secretName"`

	// AuthMode selects the credential shape. Defaults to bearer.
	AuthMode credential.AuthMode `yaml:"authMode,omitempty" json:"authMode,omitempty"`

	// TTLSeconds is the cache lifetime for fetched payloads.
	// Defaults to 300, clamped to [60, 3600].
	TTLSeconds int `yaml:"ttlSeconds,omitempty" json:"ttlSeconds,omitempty"`
}

// IsBackendEnabled returns true if the named backend appears in the enabled
// set. Unknown names are inert: they never match a backend, and validation
// does not reject them.
func (c *Config) IsBackendEnabled(name string) bool {
	if c == nil {
		return false
	}
	for _, b := range c.EnabledBackends {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

// GetAuthHeaderName returns the effective auth header name.
func (c *Config) GetAuthHeaderName() string {
	if c == nil || c.AuthHeaderName == "" {
		return DefaultAuthHeaderName
	}
	return c.AuthHeaderName
}

// GetMaxRetries returns the effective fetch retry bound. Non-positive values
// are treated as unset.
func (c *Config) GetMaxRetries() int {
	if c == nil || c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

// Validate validates the top-level configuration. Backend sections are
// validated by their own Validate methods at provider construction, so a
// broken backend fails activation of that backend only.
func (c *Config) Validate() error {
	if c == nil {
		return autherr.NewConfigurationError("", "configuration is nil")
	}

	if name := c.AuthHeaderName; name != "" && strings.ContainsAny(name, " :") {
		return autherr.NewConfigurationError("", fmt.Sprintf("invalid auth header name: %q", name))
	}

	return nil
}

// Validate validates the Vault backend configuration.
func (c *VaultConfig) Validate() error {
	if c == nil {
		return autherr.NewConfigurationError(BackendVault, "vault configuration is missing")
	}

	if c.Address == "" {
		return autherr.NewConfigurationError(BackendVault, "VAULT_ADDR is required")
	}
	if c.SecretPath == "" {
		return autherr.NewConfigurationError(BackendVault, "MLFLOW_VAULT_SECRET_PATH is required")
	}
	if c.Token == "" && (c.RoleID == "" || c.SecretID == "") {
		return autherr.NewConfigurationError(BackendVault,
			"credentials are required: VAULT_TOKEN or VAULT_ROLE_ID with VAULT_SECRET_ID")
	}

	return validateAuthMode(BackendVault, c.AuthMode)
}

// Validate validates the AWS backend configuration.
func (c *AWSConfig) Validate() error {
	if c == nil {
		return autherr.NewConfigurationError(BackendAWS, "aws configuration is missing")
	}

	if c.Region == "" {
		return autherr.NewConfigurationError(BackendAWS, "AWS_REGION is required")
	}
	if c.SecretID == "" {
		return autherr.NewConfigurationError(BackendAWS, "MLFLOW_AWS_SECRET_ID is required")
	}

	return validateAuthMode(BackendAWS, c.AuthMode)
}

// Validate validates the Azure backend configuration.
func (c *AzureConfig) Validate() error {
	if c == nil {
		return autherr.NewConfigurationError(BackendAzure, "azure configuration is missing")
	}

	if c.VaultURL == "" {
		return autherr.NewConfigurationError(BackendAzure, "AZURE_KEY_VAULT_URL is required")
	}
	if c.SecretName == "" {
		return autherr.NewConfigurationError(BackendAzure, "MLFLOW_AZURE_SECRET_NAME is required")
	}

	return validateAuthMode(BackendAzure, c.AuthMode)
}

func validateAuthMode(backend string, mode credential.AuthMode) error {
	if mode != "" && !mode.IsValid() {
		return autherr.NewConfigurationError(backend, fmt.Sprintf("invalid auth mode: %s", mode))
	}
	return nil
}

// GetAuthMode returns the effective auth mode for the Vault backend.
func (c *VaultConfig) GetAuthMode() credential.AuthMode {
	return authModeOrDefault(c.AuthMode)
}

// GetAuthMode returns the effective auth mode for the AWS backend.
func (c *AWSConfig) GetAuthMode() credential.AuthMode {
	return authModeOrDefault(c.AuthMode)
}

// GetAuthMode returns the effective auth mode for the Azure backend.
func (c *AzureConfig) GetAuthMode() credential.AuthMode {
	return authModeOrDefault(c.AuthMode)
}

func authModeOrDefault(mode credential.AuthMode) credential.AuthMode {
	if mode == "" {
		return credential.AuthModeBearer
	}
	return mode
}

// GetTTL returns the effective cache TTL for the Vault backend.
func (c *VaultConfig) GetTTL() time.Duration {
	return ttlOrDefault(c.TTLSeconds)
}

// GetTTL returns the effective cache TTL for the AWS backend.
func (c *AWSConfig) GetTTL() time.Duration {
	return ttlOrDefault(c.TTLSeconds)
}

// GetTTL returns the effective cache TTL for the Azure backend.
func (c *AzureConfig) GetTTL() time.Duration {
	return ttlOrDefault(c.TTLSeconds)
}

// ValidateTTLSeconds normalizes a TTL: non-positive values take the default,
// everything is clamped to [MinTTLSeconds, MaxTTLSeconds].
func ValidateTTLSeconds(seconds int) int {
	if seconds <= 0 {
		seconds = DefaultTTLSeconds
	}
	if seconds < MinTTLSeconds {
		return MinTTLSeconds
	}
	if seconds > MaxTTLSeconds {
		return MaxTTLSeconds
	}
	return seconds
}

func ttlOrDefault(seconds int) time.Duration {
	return time.Duration(ValidateTTLSeconds(seconds)) * time.Second
}

// FormatDuration renders a duration for diagnostic output: "45s", "2m 5s",
// "1h 1m". Sub-second precision is dropped; negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}

	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		m, s := total/60, total%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		h, m := total/3600, (total%3600)/60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// Clone creates a deep copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := &Config{
		AuthHeaderName: c.AuthHeaderName,
		MaxRetries:     c.MaxRetries,
		LogLevel:       c.LogLevel,
		LogFormat:      c.LogFormat,
		BreakerEnabled: c.BreakerEnabled,
		OTLPEndpoint:   c.OTLPEndpoint,
	}

	if c.EnabledBackends != nil {
		clone.EnabledBackends = append([]string(nil), c.EnabledBackends...)
	}
	if c.AllowedHosts != nil {
		clone.AllowedHosts = append([]string(nil), c.AllowedHosts...)
	}

	if c.Vault != nil {
		vc := *c.Vault
		clone.Vault = &vc
	}
	if c.AWS != nil {
		ac := *c.AWS
		clone.AWS = &ac
	}
	if c.Azure != nil {
		zc := *c.Azure
		clone.Azure = &zc
	}

	return clone
}
