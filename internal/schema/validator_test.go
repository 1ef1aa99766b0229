package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credkit/internal/schema"
)

func newValidator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)
	return v
}

func TestValidateAcceptsWellFormedBundle(t *testing.T) {
	t.Parallel()

	v := newValidator(t)
	raw := []byte(`{
		"tokens": {"alice": "sk_live_abcdef0123456789"},
		"service_key": "svc-key-001",
		"storage": {
			"access_key": "AKIA123",
			"secret_key": "shhh-very-secret",
			"endpoint": "https://objects.example.com",
			"bucket": "uploads"
		}
	}`)

	bundle, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_abcdef0123456789", bundle.Tokens["alice"])
	assert.Equal(t, "svc-key-001", bundle.ServiceKey)
	assert.Equal(t, "uploads", bundle.Storage.Bucket)
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "token_too_short",
			raw:  `{"tokens": {"alice": "short-0123"}, "storage": {"endpoint": "https://s.example.com", "bucket": "abc"}}`,
		},
		{
			name: "empty_token_map",
			raw:  `{"tokens": {}, "storage": {"endpoint": "https://s.example.com", "bucket": "abc"}}`,
		},
		{
			name: "missing_tokens",
			raw:  `{"storage": {"endpoint": "https://s.example.com", "bucket": "abc"}}`,
		},
		{
			name: "missing_storage",
			raw:  `{"tokens": {"alice": "sk_live_abcdef0123456789"}}`,
		},
		{
			name: "bucket_too_short",
			raw:  `{"tokens": {"alice": "sk_live_abcdef0123456789"}, "storage": {"endpoint": "https://s.example.com", "bucket": "ab"}}`,
		},
		{
			name: "endpoint_not_a_url",
			raw:  `{"tokens": {"alice": "sk_live_abcdef0123456789"}, "storage": {"endpoint": "not a url", "bucket": "abc"}}`,
		},
		{
			name: "endpoint_missing_scheme",
			raw:  `{"tokens": {"alice": "sk_live_abcdef0123456789"}, "storage": {"endpoint": "objects.example.com", "bucket": "abc"}}`,
		},
		{
			name: "not_json",
			raw:  `tokens = none`,
		},
		{
			name: "token_wrong_type",
			raw:  `{"tokens": {"alice": 42}, "storage": {"endpoint": "https://s.example.com", "bucket": "abc"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newValidator(t)
			bundle, err := v.Validate([]byte(tt.raw))
			assert.Nil(t, bundle)

			var invalid *schema.InvalidError
			require.ErrorAs(t, err, &invalid)
			assert.NotEmpty(t, invalid.Causes)
		})
	}
}

func TestValidateNoSilentDefaults(t *testing.T) {
	t.Parallel()

	// A partially-shaped candidate must be rejected, never coerced.
	v := newValidator(t)
	_, err := v.Validate([]byte(`{"tokens": {"alice": "sk_live_abcdef0123456789"}, "storage": {"endpoint": "https://s.example.com"}}`))

	var invalid *schema.InvalidError
	require.ErrorAs(t, err, &invalid)
}
