package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// RedactionSentinel replaces every value classified as sensitive before an
// audit snapshot is persisted.
const RedactionSentinel = "[REDACTED]"

// sensitiveSuffixes match secret-shaped keys by naming convention.
var sensitiveSuffixes = []string{"_token", "_secret", "_password", "_key"}

// defaultSensitiveKeys is the explicit allowlist of keys that are sensitive
// without matching a suffix.
var defaultSensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"private_key",
	"credit_card",
	"card_number",
	"cvv",
	"ssn",
}

// Redactor strips sensitive values from state snapshots. It is pluggable so
// new sensitive fields can be added in one place without touching call sites.
type Redactor struct {
	keys         map[string]struct{}
	suffixes     []string
	fingerprints bool
}

// RedactorOption configures a Redactor.
type RedactorOption func(*Redactor)

// WithSensitiveKeys adds keys to the explicit sensitive-key list.
func WithSensitiveKeys(keys ...string) RedactorOption {
	return func(r *Redactor) {
		for _, k := range keys {
			r.keys[strings.ToLower(k)] = struct{}{}
		}
	}
}

// WithFingerprints stores presence and fingerprint sidecar fields for
// redacted string values so secret rotation can be verified from the audit
// trail without exposing the secret itself.
func WithFingerprints() RedactorOption {
	return func(r *Redactor) {
		r.fingerprints = true
	}
}

// NewRedactor builds a Redactor with the default sensitive-key list plus the
// conventional secret-shaped suffixes.
func NewRedactor(opts ...RedactorOption) *Redactor {
	r := &Redactor{
		keys:     make(map[string]struct{}, len(defaultSensitiveKeys)),
		suffixes: sensitiveSuffixes,
	}
	for _, k := range defaultSensitiveKeys {
		r.keys[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Redact returns a copy of state with every sensitive value replaced by the
// redaction sentinel. Nested maps and slices of maps are redacted
// recursively. The input is never modified.
func (r *Redactor) Redact(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}

	out := make(map[string]any, len(state))
	for key, value := range state {
		if r.isSensitive(key) {
			out[key] = RedactionSentinel
			if r.fingerprints {
				if s, ok := value.(string); ok && s != "" {
					out[key+"_present"] = true
					out[key+"_fingerprint"] = Fingerprint(s)
				}
			}
			continue
		}
		out[key] = r.redactValue(value)
	}
	return out
}

func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return r.Redact(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.redactValue(item)
		}
		return out
	default:
		return value
	}
}

func (r *Redactor) isSensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := r.keys[lower]; ok {
		return true
	}
	for _, suffix := range r.suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Fingerprint returns a short, stable digest of a secret value. Two rotations
// of the same credential produce different fingerprints, which is all the
// compliance trail needs.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("sha256:%s", hex.EncodeToString(sum[:6]))
}
