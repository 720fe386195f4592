// Package azurekv implements the Azure Key Vault secret backend.
package azurekv

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
	"github.com/trackauth/mlflow-secrets-auth/internal/config"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider"
)

// secretGetter is the slice of the Key Vault secrets API the provider uses.
type secretGetter interface {
	GetSecret(ctx context.Context, name string, version string,
		options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// Provider fetches secret payloads from Azure Key Vault. Credentials come
// from the default chain (environment, workload identity, managed identity,
// CLI); the client is built lazily and Fetch performs a single GetSecret
// round trip against the latest secret version.
type Provider struct {
	cfg    *config.AzureConfig
	logger observability.Logger

	mu     sync.Mutex
	client secretGetter
}

var _ provider.SecretProvider = (*Provider)(nil)

// New creates an Azure Key Vault provider. Configuration is validated here
// so a broken backend fails activation without touching the network.
func New(cfg *config.AzureConfig, logger observability.Logger) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Provider{
		cfg:    cfg,
		logger: logger.With(observability.String("backend", config.BackendAzure)),
	}, nil
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return config.BackendAzure
}

// IsAvailable reports whether required configuration is present.
func (p *Provider) IsAvailable() bool {
	return p.cfg.Validate() == nil
}

// Fetch reads the configured secret and returns its value bytes.
func (p *Provider) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	raw, err := p.fetch(ctx)
	observability.RecordFetch(config.BackendAzure, time.Since(start), err)
	return raw, err
}

func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	client, err := p.ensureClient()
	if err != nil {
		return nil, err
	}

	p.logger.Debug("reading azure key vault secret", observability.String("secret_name", p.cfg.SecretName))

	// An empty version selects the latest.
	resp, err := client.GetSecret(ctx, p.cfg.SecretName, "", nil)
	if err != nil {
		return nil, classify("get secret", err)
	}

	if resp.Value == nil {
		return nil, autherr.NewMalformedSecretError(config.BackendAzure, "secret value is empty")
	}

	return []byte(*resp.Value), nil
}

// ensureClient builds the Key Vault client on first use via the default
// credential chain.
func (p *Provider) ensureClient() (secretGetter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, autherr.New(autherr.ErrConfiguration, config.BackendAzure, "build azure credential", err)
	}

	client, err := azsecrets.NewClient(p.cfg.VaultURL, cred, &azsecrets.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: provider.NewHTTPClient(),
			// Retries happen in the resolver with classification-aware backoff.
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, autherr.New(autherr.ErrConfiguration, config.BackendAzure, "build key vault client", err)
	}

	p.client = client
	return p.client, nil
}

// classify maps SDK errors onto the error taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == http.StatusUnauthorized || respErr.StatusCode == http.StatusForbidden:
			return autherr.NewWithCode(autherr.ErrAuthentication, config.BackendAzure, op, err, respErr.StatusCode)
		case respErr.StatusCode == http.StatusNotFound:
			return autherr.NewWithCode(autherr.ErrNotFound, config.BackendAzure, op, err, respErr.StatusCode)
		case respErr.StatusCode == http.StatusTooManyRequests || respErr.StatusCode >= http.StatusInternalServerError:
			return autherr.NewWithCode(autherr.ErrTransient, config.BackendAzure, op, err, respErr.StatusCode)
		default:
			return &autherr.Error{Backend: config.BackendAzure, Op: op, Err: err, Code: respErr.StatusCode}
		}
	}

	// Token acquisition failures from the identity chain.
	var authFailed *azidentity.AuthenticationFailedError
	if errors.As(err, &authFailed) {
		return autherr.New(autherr.ErrAuthentication, config.BackendAzure, op, err)
	}

	// Timeouts, refused connections, DNS failures.
	return autherr.New(autherr.ErrTransient, config.BackendAzure, op, err)
}
