package credential

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
)

// AuthMode specifies how a secret payload is rendered into a credential.
type AuthMode string

// Auth mode constants.
const (
	// AuthModeBearer renders a token credential.
	AuthModeBearer AuthMode = "bearer"

	// AuthModeBasic renders a username/password credential.
	AuthModeBasic AuthMode = "basic"
)

// String returns the string representation of the auth mode.
func (m AuthMode) String() string {
	return string(m)
}

// IsValid returns true if the auth mode is valid.
func (m AuthMode) IsValid() bool {
	switch m {
	case AuthModeBearer, AuthModeBasic:
		return true
	default:
		return false
	}
}

// Credential is an immutable auth credential rendered into an HTTP header.
// String() is always safe to log; it never exposes the secret material.
type Credential interface {
	// HeaderValue renders the credential for the given header name.
	// The Authorization header gets the scheme prefix ("Bearer <token>",
	// "Basic <base64>"); custom headers get the bare value.
	HeaderValue(headerName string) string

	fmt.Stringer
}

// Interface guards.
var (
	_ Credential = Bearer{}
	_ Credential = Basic{}
)

// Bearer is a token credential.
type Bearer struct {
	token string
}

// NewBearer creates a Bearer credential.
func NewBearer(token string) Bearer {
	return Bearer{token: token}
}

// HeaderValue renders "Bearer <token>" for the Authorization header and the
// raw token for custom headers (API-key style headers carry no scheme).
func (b Bearer) HeaderValue(headerName string) string {
	if strings.EqualFold(headerName, "Authorization") {
		return "Bearer " + b.token
	}
	return b.token
}

// String returns a masked representation safe for logs.
func (b Bearer) String() string {
	return fmt.Sprintf("Bearer(%s)", MaskSecret(b.token, 0))
}

// Basic is a username/password credential.
type Basic struct {
	username string
	password string
}

// NewBasic creates a Basic credential.
func NewBasic(username, password string) Basic {
	return Basic{username: username, password: password}
}

// HeaderValue renders "Basic <base64>" for the Authorization header and the
// bare base64 pair for custom headers.
func (b Basic) HeaderValue(headerName string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(b.username + ":" + b.password))
	if strings.EqualFold(headerName, "Authorization") {
		return "Basic " + encoded
	}
	return encoded
}

// String returns a masked representation safe for logs.
func (b Basic) String() string {
	return fmt.Sprintf("Basic(%s:%s)", b.username, MaskSecret(b.password, 0))
}

// Build constructs a credential from a secret payload. bearer mode requires a
// token field; basic mode requires both username and password. Missing fields
// are a MalformedSecretError, never a silently empty credential.
func Build(payload map[string]string, mode AuthMode) (Credential, error) {
	switch mode {
	case AuthModeBearer:
		token := strings.TrimSpace(payload["token"])
		if token == "" {
			return nil, autherr.NewMalformedSecretError("", "bearer auth requires a token field")
		}
		return NewBearer(token), nil

	case AuthModeBasic:
		username := strings.TrimSpace(payload["username"])
		password := strings.TrimSpace(payload["password"])
		if username == "" || password == "" {
			return nil, autherr.NewMalformedSecretError("", "basic auth requires username and password fields")
		}
		return NewBasic(username, password), nil

	default:
		return nil, autherr.NewConfigurationError("", fmt.Sprintf("unsupported auth mode: %s", mode))
	}
}
