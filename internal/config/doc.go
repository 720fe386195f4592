// Package config holds the environment-sourced configuration for secret
// backend credential resolution.
//
// The environment is read once into an immutable Config snapshot:
//
//	cfg := config.FromEnv()
//	if cfg.IsBackendEnabled(config.BackendVault) {
//		if err := cfg.Vault.Validate(); err != nil {
//			// backend cannot activate; try the next one
//		}
//	}
//
// Top-level Validate covers only the shared surface; each backend section
// validates itself at provider construction so one broken backend never
// blocks the others. Get* accessors apply defaults (header name, retry
// bound, auth mode, TTL clamping) without mutating the snapshot.
package config
