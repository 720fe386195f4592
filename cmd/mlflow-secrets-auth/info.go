package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trackauth/mlflow-secrets-auth/internal/config"
)

// infoReport is the resolved configuration snapshot rendered by the info
// command. Secret material never appears in it.
type infoReport struct {
	Version      string   `yaml:"version"`
	Backend      string   `yaml:"backend"`
	ConfigError  string   `yaml:"configError,omitempty"`
	AuthMode     string   `yaml:"authMode,omitempty"`
	CacheTTL     string   `yaml:"cacheTtl,omitempty"`
	AuthHeader   string   `yaml:"authHeader"`
	AllowedHosts []string `yaml:"allowedHosts,omitempty"`
}

// runInfo implements the info subcommand. It always exits zero unless the
// flags themselves are invalid; misconfiguration is reported, not failed on.
func runInfo(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(errOut)
	output := fs.String("output", "text", "output format: text or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	return printInfo(config.FromEnv(), *output, out, errOut)
}

// printInfo renders the report in the requested format.
func printInfo(cfg *config.Config, format string, out, errOut io.Writer) int {
	report := buildInfoReport(cfg)

	switch format {
	case "text":
		writeInfoText(out, report)
		return 0
	case "yaml":
		b, err := yaml.Marshal(report)
		if err != nil {
			fmt.Fprintf(errOut, "failed to render yaml: %v\n", err)
			return 1
		}
		fmt.Fprint(out, string(b))
		return 0
	default:
		fmt.Fprintf(errOut, "unknown output format %q (expected text or yaml)\n", format)
		return 2
	}
}

// buildInfoReport resolves the backend the provider would select. Auth mode
// and TTL are only reported when the section validates; an invalid section is
// surfaced through ConfigError instead.
func buildInfoReport(cfg *config.Config) infoReport {
	report := infoReport{
		Version:      version,
		Backend:      "none",
		AuthHeader:   cfg.GetAuthHeaderName(),
		AllowedHosts: cfg.AllowedHosts,
	}

	section, ok := firstEnabled(cfg)
	if !ok {
		return report
	}

	report.Backend = section.name
	if err := section.validate(); err != nil {
		report.ConfigError = err.Error()
		return report
	}

	report.AuthMode = section.mode().String()
	report.CacheTTL = config.FormatDuration(section.ttl())
	return report
}

// writeInfoText renders the report as aligned plain text.
func writeInfoText(out io.Writer, report infoReport) {
	fmt.Fprintf(out, "mlflow-secrets-auth %s\n", report.Version)
	fmt.Fprintf(out, "  Backend:       %s\n", report.Backend)
	if report.ConfigError != "" {
		fmt.Fprintf(out, "  Config error:  %s\n", report.ConfigError)
	}
	if report.AuthMode != "" {
		fmt.Fprintf(out, "  Auth mode:     %s\n", report.AuthMode)
	}
	if report.CacheTTL != "" {
		fmt.Fprintf(out, "  Cache TTL:     %s\n", report.CacheTTL)
	}
	fmt.Fprintf(out, "  Auth header:   %s\n", report.AuthHeader)

	hosts := "(all)"
	if len(report.AllowedHosts) > 0 {
		hosts = strings.Join(report.AllowedHosts, ", ")
	}
	fmt.Fprintf(out, "  Allowed hosts: %s\n", hosts)
}
