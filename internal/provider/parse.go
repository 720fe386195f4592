package provider

import (
	"encoding/json"
	"strings"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
)

// Recognized payload fields. Anything else is dropped during parsing.
const (
	fieldToken    = "token"
	fieldUsername = "username"
	fieldPassword = "password"
)

// ParseSecretPayload normalizes a raw secret into a flat string map holding
// only the recognized fields. Accepted shapes, most to least structured:
//
//   - JSON object with a token field, or with username and password fields
//   - plain "user:pass" (exactly one colon, both halves non-empty)
//   - any other plain string, taken as a bare token
//
// Empty input and JSON objects lacking both recognized shapes are a
// MalformedSecretError. Field values are whitespace-trimmed.
func ParseSecretPayload(backend string, raw []byte) (map[string]string, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, autherr.NewMalformedSecretError(backend, "secret is empty")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return parsePlainSecret(text), nil
	}

	payload := make(map[string]string, 3)
	for _, field := range []string{fieldToken, fieldUsername, fieldPassword} {
		if v, ok := obj[field].(string); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				payload[field] = trimmed
			}
		}
	}

	hasToken := payload[fieldToken] != ""
	hasBasicPair := payload[fieldUsername] != "" && payload[fieldPassword] != ""
	if !hasToken && !hasBasicPair {
		return nil, autherr.NewMalformedSecretError(backend,
			"secret must contain either a token field or username and password fields")
	}

	return payload, nil
}

// parsePlainSecret handles non-JSON secrets. A single-colon value is read as
// a username/password pair; everything else is a bare token.
func parsePlainSecret(text string) map[string]string {
	if strings.Count(text, ":") == 1 {
		parts := strings.SplitN(text, ":", 2)
		username := strings.TrimSpace(parts[0])
		password := strings.TrimSpace(parts[1])
		if username != "" && password != "" {
			return map[string]string{
				fieldUsername: username,
				fieldPassword: password,
			}
		}
	}

	return map[string]string{fieldToken: text}
}
