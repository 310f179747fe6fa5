package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_SuffixPatterns(t *testing.T) {
	r := NewRedactor()

	state := map[string]any{
		"name":           "Sparkle Cleaning Co",
		"webhook_token":  "tok_12345",
		"client_secret":  "sec_abcde",
		"admin_password": "hunter2",
		"signing_key":    "k-998877",
		"contact_email":  "ops@example.com",
	}

	got := r.Redact(state)

	assert.Equal(t, "Sparkle Cleaning Co", got["name"])
	assert.Equal(t, "ops@example.com", got["contact_email"])
	for _, key := range []string{"webhook_token", "client_secret", "admin_password", "signing_key"} {
		assert.Equal(t, RedactionSentinel, got[key], "key %q should be redacted", key)
	}
}

func TestRedact_ExplicitList(t *testing.T) {
	r := NewRedactor(WithSensitiveKeys("internal_note"))

	got := r.Redact(map[string]any{
		"password":      "pw",
		"ssn":           "123-45-6789",
		"internal_note": "do not share",
		"public_note":   "visible",
	})

	assert.Equal(t, RedactionSentinel, got["password"])
	assert.Equal(t, RedactionSentinel, got["ssn"])
	assert.Equal(t, RedactionSentinel, got["internal_note"])
	assert.Equal(t, "visible", got["public_note"])
}

func TestRedact_NestedStructures(t *testing.T) {
	r := NewRedactor()

	got := r.Redact(map[string]any{
		"integration": map[string]any{
			"provider":     "quickbooks",
			"access_token": "at-secret",
		},
		"webhooks": []any{
			map[string]any{"url": "https://example.com", "signing_secret": "whsec"},
		},
	})

	nested := got["integration"].(map[string]any)
	assert.Equal(t, "quickbooks", nested["provider"])
	assert.Equal(t, RedactionSentinel, nested["access_token"])

	hook := got["webhooks"].([]any)[0].(map[string]any)
	assert.Equal(t, RedactionSentinel, hook["signing_secret"])
	assert.Equal(t, "https://example.com", hook["url"])
}

func TestRedact_FingerprintSidecars(t *testing.T) {
	r := NewRedactor(WithFingerprints())

	got := r.Redact(map[string]any{"api_key": "live-key-1"})

	assert.Equal(t, RedactionSentinel, got["api_key"])
	assert.Equal(t, true, got["api_key_present"])
	assert.Equal(t, Fingerprint("live-key-1"), got["api_key_fingerprint"])

	// Rotation changes the fingerprint but never reveals the value.
	rotated := r.Redact(map[string]any{"api_key": "live-key-2"})
	assert.NotEqual(t, got["api_key_fingerprint"], rotated["api_key_fingerprint"])
}

func TestRedact_DoesNotMutateInput(t *testing.T) {
	r := NewRedactor()
	in := map[string]any{"password": "pw", "name": "x"}

	_ = r.Redact(in)

	require.Equal(t, "pw", in["password"])
}

func TestRedact_NilState(t *testing.T) {
	r := NewRedactor()
	assert.Nil(t, r.Redact(nil))
}
