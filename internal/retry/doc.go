// Package retry provides exponential backoff retry functionality for
// secret fetches.
//
// This package implements configurable retry logic with exponential
// backoff and jitter for resilient communication with secret stores.
//
// # Features
//
//   - Configurable maximum retry attempts
//   - Exponential backoff with configurable base, factor, and maximum
//   - Jitter factor to prevent thundering herd
//   - Context-aware cancellation support
//   - Customizable retry condition functions
//
// # Usage
//
// Execute an operation with retry:
//
//	cfg := retry.DefaultConfig()
//	err := retry.Do(ctx, cfg, func() error {
//	    return fetchSecret(ctx)
//	}, &retry.Options{ShouldRetry: autherr.IsRetryable})
//
// # Configuration
//
// Customize retry behavior:
//
//	cfg := &retry.Config{
//	    MaxRetries:     5,
//	    InitialBackoff: 200 * time.Millisecond,
//	    MaxBackoff:     10 * time.Second,
//	    BackoffFactor:  2.0,
//	    JitterFactor:   0.25,
//	}
//
// Backoff is computed as min(InitialBackoff × BackoffFactor^(n-1),
// MaxBackoff) before attempt n+1, with uniform jitter of up to
// JitterFactor of the capped value added on top. The first attempt is
// always immediate.
package retry
