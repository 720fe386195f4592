// Package allowlist restricts which destination hosts may receive
// credentials.
package allowlist

import (
	"fmt"
	"path"
	"strings"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
)

// Allowlist is an immutable set of case-insensitive hostname glob
// patterns. The zero pattern set allows every host.
type Allowlist struct {
	patterns []string
}

// New validates and compiles the given patterns. Patterns use
// shell-style globs (path.Match semantics), so "*.example.com" matches
// "a.example.com" and "a.b.example.com" but not "example.com" itself.
// Empty entries are skipped; malformed globs fail here rather than at
// match time.
func New(patterns []string) (*Allowlist, error) {
	compiled := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		// path.Match validates lazily; matching a pattern against
		// itself walks every metacharacter.
		if _, err := path.Match(p, p); err != nil {
			return nil, autherr.NewConfigurationError(
				"allowlist", fmt.Sprintf("invalid host pattern %q: %v", p, err))
		}
		compiled = append(compiled, p)
	}
	return &Allowlist{patterns: compiled}, nil
}

// Matches reports whether hostname may receive credentials. Hostnames
// are matched bare; callers strip any port first. An empty allowlist
// matches every host.
func (a *Allowlist) Matches(hostname string) bool {
	if len(a.patterns) == 0 {
		return true
	}

	hostname = strings.ToLower(strings.TrimSpace(hostname))
	for _, p := range a.patterns {
		if ok, _ := path.Match(p, hostname); ok {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the compiled pattern set.
func (a *Allowlist) Patterns() []string {
	out := make([]string, len(a.patterns))
	copy(out, a.patterns)
	return out
}
