package secretsauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/trackauth/mlflow-secrets-auth/internal/allowlist"
	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
	"github.com/trackauth/mlflow-secrets-auth/internal/cache"
	"github.com/trackauth/mlflow-secrets-auth/internal/config"
	"github.com/trackauth/mlflow-secrets-auth/internal/credential"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider/awssm"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider/azurekv"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider/vault"
	"github.com/trackauth/mlflow-secrets-auth/internal/retry"
)

// Credential is an authentication credential resolved from a secret store.
// HeaderValue renders it for the named header: the standard Authorization
// header gets the full "Bearer <token>" / "Basic <base64>" form, any other
// header gets the raw token or bare base64 pair without a scheme prefix.
type Credential interface {
	HeaderValue(headerName string) string
	fmt.Stringer
}

var (
	_ Credential = credential.Bearer{}
	_ Credential = credential.Basic{}
)

// backendConstructor pairs a backend name with its provider constructor.
// Selection walks these in priority order.
type backendConstructor struct {
	name  string
	build func(cfg *config.Config, logger observability.Logger) (provider.SecretProvider, error)
}

func defaultConstructors() []backendConstructor {
	return []backendConstructor{
		{
			name: config.BackendVault,
			build: func(cfg *config.Config, logger observability.Logger) (provider.SecretProvider, error) {
				return vault.New(cfg.Vault, logger)
			},
		},
		{
			name: config.BackendAWS,
			build: func(cfg *config.Config, logger observability.Logger) (provider.SecretProvider, error) {
				return awssm.New(cfg.AWS, logger)
			},
		},
		{
			name: config.BackendAzure,
			build: func(cfg *config.Config, logger observability.Logger) (provider.SecretProvider, error) {
				return azurekv.New(cfg.Azure, logger)
			},
		},
	}
}

// Provider resolves credentials for outgoing tracking requests. The first
// enabled backend whose constructor succeeds is selected on first use and
// kept for the process lifetime; when none activates, the provider is
// disabled and every resolution yields nil.
//
// Resolution is fail-open: any failure (host not allowed, fetch exhausted,
// malformed secret) logs and returns nil so the request proceeds
// unauthenticated. It never returns an error to the caller.
type Provider struct {
	logger observability.Logger
	tracer *observability.Tracer
	cache  *cache.SecretCache

	cfg          *config.Config
	constructors []backendConstructor
	retryCfg     *retry.Config

	activateOnce sync.Once
	backend      provider.SecretProvider
	allow        *allowlist.Allowlist
	headerName   string
	fingerprint  string
	authMode     credential.AuthMode
	ttl          time.Duration
	breaker      *gobreaker.CircuitBreaker

	group singleflight.Group
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to a logger built from the
// environment.
func WithLogger(logger observability.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithConfig supplies the configuration snapshot directly instead of
// reading the environment on first use.
func WithConfig(cfg *config.Config) Option {
	return func(p *Provider) {
		p.cfg = cfg
	}
}

// WithCache supplies the secret cache instance. Defaults to a fresh
// process-local cache.
func WithCache(c *cache.SecretCache) Option {
	return func(p *Provider) {
		p.cache = c
	}
}

// New creates a credential provider. Backend selection and configuration
// reading are deferred to the first resolution, so New never fails.
func New(opts ...Option) *Provider {
	p := &Provider{
		constructors: defaultConstructors(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = observability.NewLoggerFromEnv()
	}
	if p.tracer == nil {
		p.tracer = observability.NewTracerFromEnv()
	}
	if p.cache == nil {
		p.cache = cache.New()
	}

	return p
}

// activate reads configuration and selects the backend. Runs once; a
// Provider that fails activation stays disabled for the process lifetime.
func (p *Provider) activate() {
	if p.cfg == nil {
		p.cfg = config.FromEnv()
	}
	cfg := p.cfg

	p.headerName = cfg.GetAuthHeaderName()
	if p.retryCfg == nil {
		p.retryCfg = &retry.Config{MaxRetries: cfg.GetMaxRetries()}
	}

	allow, err := allowlist.New(cfg.AllowedHosts)
	if err != nil {
		p.logger.Error("invalid allowed hosts pattern; credential resolution disabled",
			observability.Error(err))
		return
	}
	p.allow = allow

	for _, c := range p.constructors {
		if !cfg.IsBackendEnabled(c.name) {
			continue
		}

		backend, err := c.build(cfg, p.logger)
		if err != nil {
			p.logger.Warn("backend activation failed; trying next",
				observability.String("backend", c.name),
				observability.Error(err))
			continue
		}

		p.backend = backend
		break
	}

	if p.backend == nil {
		p.logger.Info("no secret backend active; requests proceed unauthenticated")
		return
	}

	// The selected constructor validated its section, so it is non-nil.
	switch p.backend.Name() {
	case config.BackendVault:
		p.fingerprint = cache.Fingerprint(config.BackendVault, cfg.Vault.Address, cfg.Vault.SecretPath)
		p.authMode = cfg.Vault.GetAuthMode()
		p.ttl = cfg.Vault.GetTTL()
	case config.BackendAWS:
		p.fingerprint = cache.Fingerprint(config.BackendAWS, cfg.AWS.Region, cfg.AWS.SecretID)
		p.authMode = cfg.AWS.GetAuthMode()
		p.ttl = cfg.AWS.GetTTL()
	case config.BackendAzure:
		p.fingerprint = cache.Fingerprint(config.BackendAzure, cfg.Azure.VaultURL, cfg.Azure.SecretName)
		p.authMode = cfg.Azure.GetAuthMode()
		p.ttl = cfg.Azure.GetTTL()
	}

	if cfg.BreakerEnabled {
		p.breaker = newFetchBreaker(p.backend.Name(), p.logger)
	}

	observability.SetBackendActive(p.backend.Name(), true)
	p.logger.Info("secret backend active",
		observability.String("backend", p.backend.Name()),
		observability.String("auth_mode", p.authMode.String()),
		observability.Duration("ttl", p.ttl))
}

// Backend returns the active backend name, or the empty string when
// resolution is disabled.
func (p *Provider) Backend() string {
	p.activateOnce.Do(p.activate)
	if p.backend == nil {
		return ""
	}
	return p.backend.Name()
}

// HeaderName returns the header the credential is rendered into.
func (p *Provider) HeaderName() string {
	p.activateOnce.Do(p.activate)
	if p.headerName == "" {
		return config.DefaultAuthHeaderName
	}
	return p.headerName
}

// Resolve returns the credential for a request to the given URL, or nil
// when the request must proceed unauthenticated: resolution is disabled,
// the host is not allowed, or no usable secret could be obtained.
func (p *Provider) Resolve(ctx context.Context, requestURL string) Credential {
	p.activateOnce.Do(p.activate)
	if p.backend == nil {
		return nil
	}

	ctx, span := p.tracer.StartSpan(ctx, "secretsauth.resolve",
		trace.WithAttributes(attribute.String("backend", p.backend.Name())))
	defer span.End()

	host := hostname(requestURL)
	if host == "" {
		p.logger.Warn("request URL has no hostname; proceeding unauthenticated",
			observability.String("url", requestURL))
		return nil
	}

	if !p.allow.Matches(host) {
		p.logger.Debug("host not in allowlist; proceeding unauthenticated",
			observability.String("host", host))
		return nil
	}

	payload, ok := p.cache.Get(p.fingerprint)
	if !ok {
		var err error
		payload, err = p.fetchPayload(ctx)
		if err != nil {
			p.logger.Warn("secret fetch failed; proceeding unauthenticated",
				observability.String("backend", p.backend.Name()),
				observability.Error(err))
			return nil
		}
	}

	cred, err := credential.Build(payload, p.authMode)
	if err != nil {
		p.logger.Warn("credential build failed; proceeding unauthenticated",
			observability.String("backend", p.backend.Name()),
			observability.String("auth_mode", p.authMode.String()),
			observability.Error(err))
		return nil
	}

	return cred
}

// InvalidateCache drops the cached secret so the next resolution fetches a
// fresh payload. The auto-refresh transport calls this after a downstream
// auth rejection.
func (p *Provider) InvalidateCache() {
	p.activateOnce.Do(p.activate)
	if p.backend == nil {
		return
	}
	p.cache.Delete(p.fingerprint)
}

// fetchPayload fetches, parses, and caches the secret. Concurrent misses
// for the same fingerprint are coalesced into one backend round trip.
func (p *Provider) fetchPayload(ctx context.Context) (map[string]string, error) {
	v, err, _ := p.group.Do(p.fingerprint, func() (any, error) {
		// A coalesced caller may arrive after the winner repopulated the
		// cache; serve from it instead of fetching again.
		if payload, ok := p.cache.Get(p.fingerprint); ok {
			return payload, nil
		}

		raw, err := p.fetchWithRetry(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := provider.ParseSecretPayload(p.backend.Name(), raw)
		if err != nil {
			// Malformed payloads are never cached.
			return nil, err
		}

		p.cache.Set(p.fingerprint, payload, p.ttl)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	payload, _ := v.(map[string]string)
	return payload, nil
}

func (p *Provider) fetchWithRetry(ctx context.Context) ([]byte, error) {
	backend := p.backend.Name()

	var raw []byte
	err := retry.Do(ctx, p.retryCfg, func() error {
		var ferr error
		raw, ferr = p.fetch(ctx)
		return ferr
	}, &retry.Options{
		ShouldRetry: autherr.IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			retry.RecordAttempt(backend)
			p.logger.Warn("secret fetch failed; retrying",
				observability.String("backend", backend),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err))
		},
	})
	if err != nil {
		if autherr.IsRetryable(err) {
			retry.RecordExhausted(backend)
		}
		return nil, err
	}

	return raw, nil
}

// fetch performs one backend round trip, through the circuit breaker when
// one is configured.
func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	if p.breaker == nil {
		return p.backend.Fetch(ctx)
	}

	v, err := p.breaker.Execute(func() (interface{}, error) {
		return p.backend.Fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, autherr.New(autherr.ErrTransient, p.backend.Name(), "fetch", err)
		}
		return nil, err
	}

	raw, _ := v.([]byte)
	return raw, nil
}

func newFetchBreaker(backend string, logger observability.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    backend,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("fetch breaker state change",
				observability.String("backend", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()))
		},
	})
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
