// Package awssm implements the AWS Secrets Manager secret backend.
package awssm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
	"github.com/trackauth/mlflow-secrets-auth/internal/config"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider"
)

// secretsClient is the slice of the Secrets Manager API the provider uses.
type secretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider fetches secret payloads from AWS Secrets Manager. The SDK client
// is built lazily through the default credential chain; Fetch performs a
// single GetSecretValue round trip.
type Provider struct {
	cfg    *config.AWSConfig
	logger observability.Logger

	mu     sync.Mutex
	client secretsClient
}

var _ provider.SecretProvider = (*Provider)(nil)

// New creates an AWS Secrets Manager provider. Configuration is validated
// here so a broken backend fails activation without touching the network.
func New(cfg *config.AWSConfig, logger observability.Logger) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Provider{
		cfg:    cfg,
		logger: logger.With(observability.String("backend", config.BackendAWS)),
	}, nil
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return config.BackendAWS
}

// IsAvailable reports whether required configuration is present.
func (p *Provider) IsAvailable() bool {
	return p.cfg.Validate() == nil
}

// Fetch reads the configured secret and returns its value bytes.
func (p *Provider) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	raw, err := p.fetch(ctx)
	observability.RecordFetch(config.BackendAWS, time.Since(start), err)
	return raw, err
}

func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("reading aws secret", observability.String("secret_id", p.cfg.SecretID))

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.cfg.SecretID),
	})
	if err != nil {
		return nil, classify("get secret value", err)
	}

	switch {
	case out.SecretString != nil:
		return []byte(*out.SecretString), nil
	case out.SecretBinary != nil:
		return out.SecretBinary, nil
	default:
		return nil, autherr.NewMalformedSecretError(config.BackendAWS, "secret value is empty")
	}
}

// ensureClient builds the SDK client on first use via the default credential
// chain (env, shared config, IMDS).
func (p *Provider) ensureClient(ctx context.Context) (secretsClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.cfg.Region),
		awsconfig.WithHTTPClient(provider.NewHTTPClient()),
		// Retries happen in the resolver with classification-aware backoff.
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, autherr.New(autherr.ErrConfiguration, config.BackendAWS, "load aws config", err)
	}

	p.client = secretsmanager.NewFromConfig(awsCfg)
	return p.client, nil
}

// Credential and signing failures arrive as generic API errors, not modeled
// types, so they are matched by code string.
var authErrorCodes = map[string]struct{}{
	"AccessDeniedException":        {},
	"UnrecognizedClientException":  {},
	"InvalidSignatureException":    {},
	"ExpiredTokenException":        {},
	"IncompleteSignatureException": {},
}

// Throttling codes vary across services; Secrets Manager additionally models
// LimitExceededException.
var transientErrorCodes = map[string]struct{}{
	"ThrottlingException":         {},
	"TooManyRequestsException":    {},
	"LimitExceededException":      {},
	"ServiceUnavailableException": {},
}

// classify maps SDK errors onto the error taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return autherr.New(autherr.ErrNotFound, config.BackendAWS, op, err)
	}

	var internal *types.InternalServiceError
	if errors.As(err, &internal) {
		return autherr.New(autherr.ErrTransient, config.BackendAWS, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := authErrorCodes[code]; ok {
			return autherr.New(autherr.ErrAuthentication, config.BackendAWS, op, err)
		}
		if _, ok := transientErrorCodes[code]; ok {
			return autherr.New(autherr.ErrTransient, config.BackendAWS, op, err)
		}

		// Modeled client errors (invalid request, decryption failure).
		return &autherr.Error{Backend: config.BackendAWS, Op: op, Err: err}
	}

	// Timeouts, refused connections, DNS failures.
	return autherr.New(autherr.ErrTransient, config.BackendAWS, op, err)
}
