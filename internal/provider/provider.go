// Package provider defines the secret backend interface and the shared
// payload parsing used by every backend.
package provider

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Per-call network timeouts. A hung backend must not pin request goroutines.
const (
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout = 10 * time.Second

	// ReadTimeout bounds the whole request, connection included.
	ReadTimeout = 20 * time.Second
)

// NewHTTPClient returns an HTTP client with the backend timeout profile.
// Backends whose SDK accepts a custom client use this one.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ReadTimeout,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			TLSHandshakeTimeout: ConnectTimeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// SecretProvider is the interface implemented by secret backends.
type SecretProvider interface {
	// Fetch retrieves the raw secret payload in a single round trip.
	// Errors carry the taxonomy kinds from internal/autherr so callers can
	// classify without inspecting messages.
	Fetch(ctx context.Context) ([]byte, error)

	// IsAvailable reports whether the backend has the configuration it
	// needs to serve. Cheap local check; never touches the network.
	IsAvailable() bool

	// Name returns the backend name.
	Name() string
}
