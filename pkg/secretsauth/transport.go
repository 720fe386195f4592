package secretsauth

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
)

// RetriedHeader marks a request that has already been retried with a
// refreshed credential. Marked requests are never refreshed again.
const RetriedHeader = "X-MLFSA-Retried"

var errRefreshFailed = errors.New("credential refresh produced no credential")

// Transport is an http.RoundTripper that injects the resolved credential
// into outgoing requests. On a 401 or 403 response it busts the secret
// cache, resolves a fresh credential, and retries the request exactly once;
// when the refresh fails, the original response is returned untouched.
type Transport struct {
	base     http.RoundTripper
	provider *Provider
	logger   observability.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps base with credential injection for p. A nil base uses
// http.DefaultTransport.
func NewTransport(p *Provider, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:     base,
		provider: p,
		logger:   p.logger,
	}
}

// NewHTTPClient returns an http.Client whose transport resolves and
// refreshes credentials through p.
func NewHTTPClient(p *Provider) *http.Client {
	return &http.Client{Transport: NewTransport(p, nil)}
}

// RoundTrip implements http.RoundTripper. The incoming request is never
// modified; authenticated attempts are sent on clones.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	cred := t.provider.Resolve(ctx, req.URL.String())
	if cred == nil {
		return t.base.RoundTrip(req)
	}

	headerName := t.provider.HeaderName()

	authed := req.Clone(ctx)
	authed.Header.Set(headerName, cred.HeaderValue(headerName))

	resp, err := t.base.RoundTrip(authed)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}
	if req.Header.Get(RetriedHeader) != "" {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// The body is gone and cannot be replayed; hand the rejection to
		// the caller.
		return resp, nil
	}

	ctx, span := t.provider.tracer.StartSpan(ctx, "secretsauth.refresh",
		trace.WithAttributes(attribute.Int("http.status_code", resp.StatusCode)))
	defer span.End()

	refreshID := uuid.NewString()
	t.logger.Info("request rejected downstream; refreshing credential",
		observability.String("host", req.URL.Hostname()),
		observability.Int("status", resp.StatusCode),
		observability.String("refresh_id", refreshID))

	t.provider.InvalidateCache()
	fresh := t.provider.Resolve(ctx, req.URL.String())
	if fresh == nil {
		observability.RecordRefresh(errRefreshFailed)
		t.logger.Warn("credential refresh failed; returning original response",
			observability.String("refresh_id", refreshID))
		return resp, nil
	}
	observability.RecordRefresh(nil)

	retryReq := req.Clone(ctx)
	retryReq.Header.Set(headerName, fresh.HeaderValue(headerName))
	retryReq.Header.Set(RetriedHeader, "true")
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retryReq.Body = body
	}

	// Drain so the underlying connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return t.base.RoundTrip(retryReq)
}
