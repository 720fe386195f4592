// Package vault implements the HashiCorp Vault secret backend.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
	"github.com/trackauth/mlflow-secrets-auth/internal/config"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider"
)

// loginPath is the AppRole login endpoint.
const loginPath = "auth/approle/login"

// Provider fetches secret payloads from Vault. The API client is built and
// authenticated lazily on first use, guarded by mu; Fetch itself performs a
// single read round trip.
type Provider struct {
	cfg    *config.VaultConfig
	logger observability.Logger

	mu  sync.Mutex
	api *vaultapi.Client
}

var _ provider.SecretProvider = (*Provider)(nil)

// New creates a Vault provider. Configuration is validated here so a broken
// backend fails activation without touching the network.
func New(cfg *config.VaultConfig, logger observability.Logger) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Provider{
		cfg:    cfg,
		logger: logger.With(observability.String("backend", config.BackendVault)),
	}, nil
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return config.BackendVault
}

// IsAvailable reports whether required configuration is present.
func (p *Provider) IsAvailable() bool {
	return p.cfg.Validate() == nil
}

// Fetch reads the secret at the configured path and returns the payload as
// JSON bytes.
func (p *Provider) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	raw, err := p.fetch(ctx)
	observability.RecordFetch(config.BackendVault, time.Since(start), err)
	return raw, err
}

func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	api, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("reading vault secret", observability.String("path", p.cfg.SecretPath))

	secret, err := api.Logical().ReadWithContext(ctx, p.cfg.SecretPath)
	if err != nil {
		return nil, classify("read secret", err)
	}
	// Logical reads surface 404 as a nil secret, not an error.
	if secret == nil || secret.Data == nil {
		return nil, autherr.New(autherr.ErrNotFound, config.BackendVault, "read secret",
			fmt.Errorf("no secret at %s", p.cfg.SecretPath))
	}

	raw, err := json.Marshal(kvData(secret.Data))
	if err != nil {
		return nil, autherr.NewMalformedSecretError(config.BackendVault, "secret data is not serializable")
	}
	return raw, nil
}

// ensureClient builds and authenticates the API client on first use.
func (p *Provider) ensureClient(ctx context.Context) (*vaultapi.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.api != nil {
		return p.api, nil
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = p.cfg.Address
	apiConfig.Timeout = provider.ReadTimeout
	// Retries happen in the resolver with classification-aware backoff.
	apiConfig.MaxRetries = 0
	if transport, ok := apiConfig.HttpClient.Transport.(*http.Transport); ok {
		transport.DialContext = (&net.Dialer{Timeout: provider.ConnectTimeout}).DialContext
	}

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, autherr.NewConfigurationError(config.BackendVault,
			fmt.Sprintf("failed to create client: %v", err))
	}

	if err := p.authenticate(ctx, api); err != nil {
		return nil, err
	}

	p.api = api
	return api, nil
}

// authenticate sets the client token, preferring a static token over AppRole.
func (p *Provider) authenticate(ctx context.Context, api *vaultapi.Client) error {
	if p.cfg.Token != "" {
		api.SetToken(p.cfg.Token)
		if _, err := api.Auth().Token().LookupSelfWithContext(ctx); err != nil {
			return classify("verify token", err)
		}
		p.logger.Info("authenticated with vault", observability.String("method", "token"))
		return nil
	}

	secret, err := api.Logical().WriteWithContext(ctx, loginPath, map[string]interface{}{
		"role_id":   p.cfg.RoleID,
		"secret_id": p.cfg.SecretID,
	})
	if err != nil {
		return classify("approle login", err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return autherr.New(autherr.ErrAuthentication, config.BackendVault, "approle login",
			errors.New("login response missing client token"))
	}

	api.SetToken(secret.Auth.ClientToken)
	p.logger.Info("authenticated with vault", observability.String("method", "approle"))
	return nil
}

// kvData unwraps a KV v2 read (data nested under "data" beside "metadata");
// KV v1 payloads pass through unchanged.
func kvData(data map[string]interface{}) map[string]interface{} {
	if inner, ok := data["data"].(map[string]interface{}); ok {
		if _, hasMetadata := data["metadata"]; hasMetadata {
			return inner
		}
	}
	return data
}

// classify maps Vault API errors onto the error taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == http.StatusUnauthorized || respErr.StatusCode == http.StatusForbidden:
			return autherr.NewWithCode(autherr.ErrAuthentication, config.BackendVault, op, err, respErr.StatusCode)
		case respErr.StatusCode == http.StatusNotFound:
			return autherr.NewWithCode(autherr.ErrNotFound, config.BackendVault, op, err, respErr.StatusCode)
		case respErr.StatusCode == http.StatusTooManyRequests || respErr.StatusCode >= http.StatusInternalServerError:
			return autherr.NewWithCode(autherr.ErrTransient, config.BackendVault, op, err, respErr.StatusCode)
		default:
			return &autherr.Error{Backend: config.BackendVault, Op: op, Err: err, Code: respErr.StatusCode}
		}
	}

	// Timeouts, refused connections, DNS failures.
	return autherr.New(autherr.ErrTransient, config.BackendVault, op, err)
}
