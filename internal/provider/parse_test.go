package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
)

func TestParseSecretPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "json token",
			raw:  `{"token": "test-token-123"}`,
			want: map[string]string{"token": "test-token-123"},
		},
		{
			name: "json username password",
			raw:  `{"username": "user123", "password": "pass456"}`,
			want: map[string]string{"username": "user123", "password": "pass456"},
		},
		{
			name: "json fields are trimmed",
			raw:  `{"token": "  token-with-spaces  "}`,
			want: map[string]string{"token": "token-with-spaces"},
		},
		{
			name: "json unrecognized fields dropped",
			raw:  `{"token": "t", "lease_id": "abc", "ttl": "300"}`,
			want: map[string]string{"token": "t"},
		},
		{
			name: "json all recognized fields kept",
			raw:  `{"token": "t", "username": "u", "password": "p"}`,
			want: map[string]string{"token": "t", "username": "u", "password": "p"},
		},
		{
			name: "plain token",
			raw:  "plain-token-value",
			want: map[string]string{"token": "plain-token-value"},
		},
		{
			name: "plain user colon pass",
			raw:  "user:pass",
			want: map[string]string{"username": "user", "password": "pass"},
		},
		{
			name: "invalid json falls back to plain token",
			raw:  "not-json-token",
			want: map[string]string{"token": "not-json-token"},
		},
		{
			name: "surrounding whitespace stripped",
			raw:  "  plain-token  ",
			want: map[string]string{"token": "plain-token"},
		},
		{
			name: "multiple colons stay a token",
			raw:  "a:b:c",
			want: map[string]string{"token": "a:b:c"},
		},
		{
			name: "leading colon stays a token",
			raw:  ":pass",
			want: map[string]string{"token": ":pass"},
		},
		{
			name: "trailing colon stays a token",
			raw:  "user:",
			want: map[string]string{"token": "user:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload, err := ParseSecretPayload("vault", []byte(tt.raw))

			require.NoError(t, err)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestParseSecretPayload_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace only", raw: "   "},
		{name: "json without recognized fields", raw: `{"invalid": "field"}`},
		{name: "json with username only", raw: `{"username": "user"}`},
		{name: "json with password only", raw: `{"password": "pass"}`},
		{name: "json with non-string token", raw: `{"token": 12345}`},
		{name: "json null", raw: "null"},
		{name: "json empty object", raw: "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload, err := ParseSecretPayload("vault", []byte(tt.raw))

			assert.Nil(t, payload)
			assert.ErrorIs(t, err, autherr.ErrMalformedSecret)
		})
	}
}

func TestParseSecretPayload_ErrorNamesBackend(t *testing.T) {
	t.Parallel()

	_, err := ParseSecretPayload("aws-secrets-manager", []byte(""))

	require.Error(t, err)
	assert.ErrorContains(t, err, "aws-secrets-manager")
}
