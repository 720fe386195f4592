package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trackauth/mlflow-secrets-auth/internal/allowlist"
	"github.com/trackauth/mlflow-secrets-auth/internal/config"
	"github.com/trackauth/mlflow-secrets-auth/internal/credential"
	"github.com/trackauth/mlflow-secrets-auth/internal/observability"
	"github.com/trackauth/mlflow-secrets-auth/internal/provider"
)

const (
	// doctorTimeout bounds the whole probe run.
	doctorTimeout = 30 * time.Second

	// dryRunTimeout bounds the reachability HEAD request.
	dryRunTimeout = 10 * time.Second
)

// runDoctor implements the doctor subcommand.
func runDoctor(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dryRun := fs.String("dry-run", "", "URL to check against the allowlist and probe with an authenticated HEAD request")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	return doctor(config.FromEnv(), observability.NewLoggerFromEnv(), *dryRun, out)
}

// doctor walks the credential resolution chain one step at a time and reports
// each step. The first failing step makes the run unhealthy; every printed
// secret value is masked.
func doctor(cfg *config.Config, logger observability.Logger, dryRunURL string, out io.Writer) int {
	fmt.Fprintf(out, "mlflow-secrets-auth doctor %s (run %s)\n", version, uuid.NewString())
	fmt.Fprintf(out, "  auth header:   %s\n", cfg.GetAuthHeaderName())
	hosts := "(all)"
	if len(cfg.AllowedHosts) > 0 {
		hosts = strings.Join(cfg.AllowedHosts, ", ")
	}
	fmt.Fprintf(out, "  allowed hosts: %s\n", hosts)
	fmt.Fprintln(out, "Checks:")

	ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
	defer cancel()

	section, ok := firstEnabled(cfg)
	if !ok {
		return unhealthy(out, fmt.Sprintf("no backend enabled (set %s)", config.EnvEnable))
	}
	stepOK(out, "backend enabled: "+section.name)

	if err := section.validate(); err != nil {
		return unhealthy(out, "configuration invalid: "+err.Error())
	}
	mode := section.mode()
	stepOK(out, fmt.Sprintf("configuration valid (auth mode %s, cache ttl %s)",
		mode, config.FormatDuration(section.ttl())))

	backend, err := section.build(logger)
	if err != nil {
		return unhealthy(out, "backend construction failed: "+err.Error())
	}

	start := time.Now()
	raw, err := backend.Fetch(ctx)
	if err != nil {
		return unhealthy(out, "secret fetch failed: "+err.Error())
	}
	stepOK(out, fmt.Sprintf("secret fetched (%d bytes in %s)",
		len(raw), time.Since(start).Round(time.Millisecond)))

	payload, err := provider.ParseSecretPayload(section.name, raw)
	if err != nil {
		return unhealthy(out, "payload parse failed: "+err.Error())
	}
	stepOK(out, "payload parsed (fields: "+strings.Join(payloadFields(payload), ", ")+")")

	cred, err := credential.Build(payload, mode)
	if err != nil {
		return unhealthy(out, "credential build failed: "+err.Error())
	}
	stepOK(out, "credential built: "+cred.String())

	if dryRunURL != "" {
		if code := dryRunProbe(ctx, cfg, cred, dryRunURL, out); code != 0 {
			return code
		}
	}

	fmt.Fprintln(out, "Healthy.")
	return 0
}

// dryRunProbe checks the URL against the allowlist and sends an authenticated
// HEAD request to its base. Any HTTP status counts as reachable; the auth
// chain already checked out, so a transport failure is only a warning.
func dryRunProbe(ctx context.Context, cfg *config.Config, cred credential.Credential, rawURL string, out io.Writer) int {
	base, err := baseURL(rawURL)
	if err != nil {
		return unhealthy(out, fmt.Sprintf("dry run: invalid URL %q: %v", rawURL, err))
	}

	allow, err := allowlist.New(cfg.AllowedHosts)
	if err != nil {
		return unhealthy(out, "dry run: invalid allowed hosts pattern: "+err.Error())
	}
	if !allow.Matches(base.Hostname()) {
		return unhealthy(out, fmt.Sprintf("dry run: host %q is not in the allowed hosts", base.Hostname()))
	}

	ctx, cancel := context.WithTimeout(ctx, dryRunTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, base.String(), nil)
	if err != nil {
		return unhealthy(out, "dry run: "+err.Error())
	}
	headerName := cfg.GetAuthHeaderName()
	req.Header.Set(headerName, cred.HeaderValue(headerName))

	// Redirects are followed by default.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		stepWarn(out, fmt.Sprintf("dry run: HEAD %s failed: %v", base, err))
		return 0
	}
	_ = resp.Body.Close()
	stepOK(out, fmt.Sprintf("dry run: HEAD %s -> %d", base, resp.StatusCode))
	return 0
}

// baseURL strips the URL down to scheme://host/. The probe targets the server,
// not a specific API route.
func baseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("missing scheme or host")
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

// payloadFields returns the payload field names in stable order. Names only;
// the values are secrets.
func payloadFields(payload map[string]string) []string {
	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func stepOK(out io.Writer, msg string) {
	fmt.Fprintf(out, "  ok   %s\n", msg)
}

func stepWarn(out io.Writer, msg string) {
	fmt.Fprintf(out, "  warn %s\n", msg)
}

func stepFail(out io.Writer, msg string) {
	fmt.Fprintf(out, "  FAIL %s\n", msg)
}

// unhealthy reports the failing step and the final verdict.
func unhealthy(out io.Writer, msg string) int {
	stepFail(out, msg)
	fmt.Fprintln(out, "Unhealthy.")
	return 1
}
