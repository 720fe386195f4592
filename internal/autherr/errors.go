// Package autherr defines the error taxonomy for credential resolution.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Kind sentinels (errors.New) classify well-known, stable failure
//     conditions that callers check with errors.Is(). Example:
//     ErrAuthentication.
//   - The structured Error type carries backend, operation, and status
//     code context around a kind. It implements Error(), Unwrap(), and
//     Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new kind.
//
// Classification is by kind or status code via errors.Is/As, never by
// matching message strings. Error text carries locators and status text
// only, never secret material.
package autherr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind sentinels. Every error produced by a provider or the resolver
// wraps exactly one of these.
var (
	// ErrConfiguration indicates the backend cannot be constructed from
	// its environment (missing locator, missing credentials).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrHostNotAllowed indicates the request host fell outside the
	// configured allowlist.
	ErrHostNotAllowed = errors.New("host not allowed")

	// ErrTransient indicates a failure worth retrying: timeouts,
	// connection errors, 5xx and 429 responses from the secret store.
	ErrTransient = errors.New("transient backend failure")

	// ErrAuthentication indicates the secret store rejected our
	// credentials (401/403). Never retried.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotFound indicates no secret exists at the configured locator.
	ErrNotFound = errors.New("secret not found")

	// ErrMalformedSecret indicates the secret payload could not be
	// parsed into a credential. Never retried, never cached.
	ErrMalformedSecret = errors.New("malformed secret payload")
)

// Error is a classification-carrying error with backend context.
type Error struct {
	Backend string // provider name, e.g. "vault"
	Op      string // operation that failed, e.g. "read secret"
	Err     error  // wraps a kind sentinel, plus the cause if any
	Code    int    // HTTP status code if applicable
	Message string // additional detail, never secret material
}

// Error implements the error interface.
func (e *Error) Error() string {
	op := e.Op
	if e.Backend != "" {
		op = e.Backend + " " + op
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %v", op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for Error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// New creates an Error of the given kind wrapping cause.
func New(kind error, backend, op string, cause error) *Error {
	return &Error{
		Backend: backend,
		Op:      op,
		Err:     wrapKind(kind, cause),
	}
}

// NewWithCode creates an Error of the given kind with an HTTP status code.
func NewWithCode(kind error, backend, op string, cause error, code int) *Error {
	return &Error{
		Backend: backend,
		Op:      op,
		Err:     wrapKind(kind, cause),
		Code:    code,
	}
}

// NewConfigurationError creates a configuration Error for the backend.
func NewConfigurationError(backend, message string) *Error {
	return &Error{
		Backend: backend,
		Op:      "configure",
		Err:     ErrConfiguration,
		Message: message,
	}
}

// NewMalformedSecretError creates a malformed-payload Error for the backend.
func NewMalformedSecretError(backend, message string) *Error {
	return &Error{
		Backend: backend,
		Op:      "parse secret",
		Err:     ErrMalformedSecret,
		Message: message,
	}
}

// NewHostNotAllowedError creates an allowlist-rejection Error for host.
func NewHostNotAllowedError(host string) *Error {
	return &Error{
		Op:      "host check",
		Err:     ErrHostNotAllowed,
		Message: fmt.Sprintf("host %q not in allowlist", host),
	}
}

func wrapKind(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// IsRetryable returns true if the error is worth another attempt.
// Authentication, not-found, malformed-payload, and configuration
// failures are deterministic and never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMalformedSecret) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrHostNotAllowed) {
		return false
	}

	if errors.Is(err, ErrTransient) {
		return true
	}

	var e *Error
	if errors.As(err, &e) {
		// Retry on server errors (5xx) and rate limiting (429)
		if e.Code >= 500 || e.Code == 429 {
			return true
		}
	}

	return isNetworkError(err)
}

// IsAuthError returns true if the error is an authentication error.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrAuthentication) {
		return true
	}

	var e *Error
	if errors.As(err, &e) {
		// 401 Unauthorized or 403 Forbidden
		if e.Code == 401 || e.Code == 403 {
			return true
		}
	}

	return false
}

// isNetworkError classifies raw transport errors that escaped a
// provider without a kind.
func isNetworkError(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// Note: netErr.Temporary() is deprecated since Go 1.18, so only
	// timeouts count here.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
