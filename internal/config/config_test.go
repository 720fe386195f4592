package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
	"github.com/trackauth/mlflow-secrets-auth/internal/credential"
)

func TestConfig_IsBackendEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		enabled []string
		backend string
		want    bool
	}{
		{name: "enabled backend matches", enabled: []string{"vault"}, backend: BackendVault, want: true},
		{name: "other backend does not match", enabled: []string{"vault"}, backend: BackendAWS, want: false},
		{name: "empty set enables nothing", enabled: nil, backend: BackendVault, want: false},
		{name: "multiple backends", enabled: []string{"vault", "azure-key-vault"}, backend: BackendAzure, want: true},
		{name: "case-insensitive", enabled: []string{"Vault"}, backend: BackendVault, want: true},
		{name: "unknown name is inert", enabled: []string{"bogus"}, backend: BackendVault, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{EnabledBackends: tt.enabled}

			assert.Equal(t, tt.want, cfg.IsBackendEnabled(tt.backend))
		})
	}
}

func TestConfig_IsBackendEnabled_NilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config

	assert.False(t, cfg.IsBackendEnabled(BackendVault))
}

func TestConfig_GetAuthHeaderName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Authorization", (&Config{}).GetAuthHeaderName())
	assert.Equal(t, "X-API-Key", (&Config{AuthHeaderName: "X-API-Key"}).GetAuthHeaderName())

	var nilCfg *Config
	assert.Equal(t, "Authorization", nilCfg.GetAuthHeaderName())
}

func TestConfig_GetMaxRetries(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, (&Config{}).GetMaxRetries())
	assert.Equal(t, 5, (&Config{MaxRetries: 5}).GetMaxRetries())
	assert.Equal(t, 3, (&Config{MaxRetries: 0}).GetMaxRetries())
	assert.Equal(t, 3, (&Config{MaxRetries: -1}).GetMaxRetries())

	var nilCfg *Config
	assert.Equal(t, 3, nilCfg.GetMaxRetries())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "empty config is valid", cfg: &Config{}, wantErr: false},
		{name: "custom header is valid", cfg: &Config{AuthHeaderName: "X-API-Key"}, wantErr: false},
		{name: "header with space", cfg: &Config{AuthHeaderName: "X Bad"}, wantErr: true},
		{name: "header with colon", cfg: &Config{AuthHeaderName: "X:Bad"}, wantErr: true},
		{name: "nil config", cfg: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()

			if tt.wantErr {
				assert.ErrorIs(t, err, autherr.ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVaultConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *VaultConfig {
		return &VaultConfig{
			Address:    "https://vault.example.com:8200",
			Token:      "test-token",
			SecretPath: "secret/mlflow",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*VaultConfig)
		wantErr string
	}{
		{name: "token auth", mutate: func(*VaultConfig) {}},
		{name: "approle auth", mutate: func(c *VaultConfig) {
			c.Token = ""
			c.RoleID = "role-id"
			c.SecretID = "secret-id"
		}},
		{name: "explicit auth mode", mutate: func(c *VaultConfig) {
			c.AuthMode = credential.AuthModeBasic
		}},
		{name: "missing address", mutate: func(c *VaultConfig) {
			c.Address = ""
		}, wantErr: "VAULT_ADDR is required"},
		{name: "missing secret path", mutate: func(c *VaultConfig) {
			c.SecretPath = ""
		}, wantErr: "MLFLOW_VAULT_SECRET_PATH is required"},
		{name: "no credentials", mutate: func(c *VaultConfig) {
			c.Token = ""
		}, wantErr: "credentials are required"},
		{name: "role id without secret id", mutate: func(c *VaultConfig) {
			c.Token = ""
			c.RoleID = "role-id"
		}, wantErr: "credentials are required"},
		{name: "invalid auth mode", mutate: func(c *VaultConfig) {
			c.AuthMode = "digest"
		}, wantErr: "invalid auth mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, autherr.ErrConfiguration)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestVaultConfig_Validate_Nil(t *testing.T) {
	t.Parallel()

	var cfg *VaultConfig

	assert.ErrorIs(t, cfg.Validate(), autherr.ErrConfiguration)
}

func TestAWSConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *AWSConfig
		wantErr string
	}{
		{name: "valid", cfg: &AWSConfig{Region: "us-east-1", SecretID: "mlflow/token"}},
		{name: "missing region", cfg: &AWSConfig{SecretID: "mlflow/token"}, wantErr: "AWS_REGION is required"},
		{name: "missing secret id", cfg: &AWSConfig{Region: "us-east-1"}, wantErr: "MLFLOW_AWS_SECRET_ID is required"},
		{
			name:    "invalid auth mode",
			cfg:     &AWSConfig{Region: "us-east-1", SecretID: "mlflow/token", AuthMode: "digest"},
			wantErr: "invalid auth mode",
		},
		{name: "nil", cfg: nil, wantErr: "aws configuration is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, autherr.ErrConfiguration)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAzureConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *AzureConfig
		wantErr string
	}{
		{name: "valid", cfg: &AzureConfig{VaultURL: "https://kv.vault.azure.net", SecretName: "mlflow-token"}},
		{name: "missing url", cfg: &AzureConfig{SecretName: "mlflow-token"}, wantErr: "AZURE_KEY_VAULT_URL is required"},
		{name: "missing name", cfg: &AzureConfig{VaultURL: "https://kv.vault.azure.net"}, wantErr: "MLFLOW_AZURE_SECRET_NAME is required"},
		{name: "nil", cfg: nil, wantErr: "azure configuration is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, autherr.ErrConfiguration)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetAuthMode_Default(t *testing.T) {
	t.Parallel()

	assert.Equal(t, credential.AuthModeBearer, (&VaultConfig{}).GetAuthMode())
	assert.Equal(t, credential.AuthModeBearer, (&AWSConfig{}).GetAuthMode())
	assert.Equal(t, credential.AuthModeBearer, (&AzureConfig{}).GetAuthMode())

	assert.Equal(t, credential.AuthModeBasic, (&VaultConfig{AuthMode: credential.AuthModeBasic}).GetAuthMode())
}

func TestValidateTTLSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seconds int
		want    int
	}{
		{name: "valid value passes through", seconds: 300, want: 300},
		{name: "another valid value", seconds: 600, want: 600},
		{name: "zero uses default", seconds: 0, want: 300},
		{name: "negative uses default", seconds: -10, want: 300},
		{name: "below minimum clamps up", seconds: 30, want: 60},
		{name: "above maximum clamps down", seconds: 5000, want: 3600},
		{name: "exact minimum", seconds: 60, want: 60},
		{name: "exact maximum", seconds: 3600, want: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ValidateTTLSeconds(tt.seconds))
		})
	}
}

func TestGetTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 300*time.Second, (&VaultConfig{}).GetTTL())
	assert.Equal(t, 120*time.Second, (&VaultConfig{TTLSeconds: 120}).GetTTL())
	assert.Equal(t, 60*time.Second, (&AWSConfig{TTLSeconds: 10}).GetTTL())
	assert.Equal(t, 3600*time.Second, (&AzureConfig{TTLSeconds: 100000}).GetTTL())
}

func TestConfig_Clone(t *testing.T) {
	t.Parallel()

	original := &Config{
		EnabledBackends: []string{"vault"},
		AuthHeaderName:  "X-API-Key",
		AllowedHosts:    []string{"*.example.com"},
		MaxRetries:      5,
		Vault: &VaultConfig{
			Address:    "https://vault.example.com:8200",
			Token:      "test-token",
			SecretPath: "secret/mlflow",
		},
		AWS:   &AWSConfig{Region: "us-east-1", SecretID: "mlflow/token"},
		Azure: &AzureConfig{VaultURL: "https://kv.vault.azure.net", SecretName: "mlflow-token"},
	}

	clone := original.Clone()

	assert.Equal(t, original, clone)

	// Mutating the clone must not affect the original.
	clone.EnabledBackends[0] = "aws-secrets-manager"
	clone.AllowedHosts[0] = "evil.com"
	clone.Vault.Token = "other-token"

	assert.Equal(t, "vault", original.EnabledBackends[0])
	assert.Equal(t, "*.example.com", original.AllowedHosts[0])
	assert.Equal(t, "test-token", original.Vault.Token)
}

func TestConfig_Clone_Nil(t *testing.T) {
	t.Parallel()

	var cfg *Config

	assert.Nil(t, cfg.Clone())
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "zero", d: 0, want: "0s"},
		{name: "negative clamps to zero", d: -5 * time.Second, want: "0s"},
		{name: "seconds only", d: 45 * time.Second, want: "45s"},
		{name: "whole minutes", d: 5 * time.Minute, want: "5m"},
		{name: "minutes and seconds", d: 2*time.Minute + 5*time.Second, want: "2m 5s"},
		{name: "whole hours", d: 2 * time.Hour, want: "2h"},
		{name: "hours and minutes", d: time.Hour + time.Minute, want: "1h 1m"},
		{name: "hours drop seconds", d: time.Hour + time.Minute + 30*time.Second, want: "1h 1m"},
		{name: "sub-second rounds", d: 1499 * time.Millisecond, want: "1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
