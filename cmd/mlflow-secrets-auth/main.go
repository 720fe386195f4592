// Package main is the entry point for the mlflow-secrets-auth diagnostics CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/trackauth/mlflow-secrets-auth/internal/config"
	"github.com/trackauth/mlflow-secrets-auth/internal/credential"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider/awssm"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider/azurekv"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider/vault"
)

// Build-time variables set via ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to the named subcommand and returns the process exit code.
func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		usage(errOut)
		return 1
	}

	switch args[0] {
	case "info":
		return runInfo(args[1:], out, errOut)
	case "doctor":
		return runDoctor(args[1:], out, errOut)
	case "version", "-version", "--version":
		printVersion(out)
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command %q\n\n", args[0])
		usage(errOut)
		return 2
	}
}

// usage prints the command summary.
func usage(w io.Writer) {
	fmt.Fprintf(w, `mlflow-secrets-auth resolves tracking-server credentials from secret backends.

Usage:
  mlflow-secrets-auth <command> [flags]

Commands:
  info     print the resolved configuration
  doctor   probe the enabled backend end to end (--dry-run URL adds an authenticated HEAD request)
  version  print build information
`)
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mlflow-secrets-auth version %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// backendSection pairs a backend name with accessors into its configuration
// section. The mode, ttl, and build closures must only be called after
// validate succeeds.
type backendSection struct {
	name     string
	validate func() error
	mode     func() credential.AuthMode
	ttl      func() time.Duration
	build    func(observability.Logger) (provider.SecretProvider, error)
}

// backendSections returns the backend sections in resolution priority order.
func backendSections(cfg *config.Config) []backendSection {
	return []backendSection{
		{
			name:     config.BackendVault,
			validate: cfg.Vault.Validate,
			mode:     cfg.Vault.GetAuthMode,
			ttl:      cfg.Vault.GetTTL,
			build: func(logger observability.Logger) (provider.SecretProvider, error) {
				return vault.New(cfg.Vault, logger)
			},
		},
		{
			name:     config.BackendAWS,
			validate: cfg.AWS.Validate,
			mode:     cfg.AWS.GetAuthMode,
			ttl:      cfg.AWS.GetTTL,
			build: func(logger observability.Logger) (provider.SecretProvider, error) {
				return awssm.New(cfg.AWS, logger)
			},
		},
		{
			name:     config.BackendAzure,
			validate: cfg.Azure.Validate,
			mode:     cfg.Azure.GetAuthMode,
			ttl:      cfg.Azure.GetTTL,
			build: func(logger observability.Logger) (provider.SecretProvider, error) {
				return azurekv.New(cfg.Azure, logger)
			},
		},
	}
}

// firstEnabled returns the first enabled backend section, mirroring the
// selection order of the credential provider.
func firstEnabled(cfg *config.Config) (backendSection, bool) {
	for _, section := range backendSections(cfg) {
		if cfg.IsBackendEnabled(section.name) {
			return section, true
		}
	}
	return backendSection{}, false
}
