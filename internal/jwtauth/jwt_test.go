package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "glint/pkg/domain-errors"
)

const signingKey = "test-signing-key"

func TestValidateToken_RoundTrip(t *testing.T) {
	svc := New(signingKey, "glint", "glint-audit")

	token, err := svc.GenerateToken("user-42", "compliance_operator", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.ActorID)
	assert.Equal(t, "compliance_operator", claims.Role)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	svc := New(signingKey, "glint", "glint-audit")

	token, err := svc.GenerateToken("user-42", "compliance_operator", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func TestValidateToken_RejectsWrongAudience(t *testing.T) {
	// Same signing key, different audience: a control-plane token minted
	// for another service must not open the audit API.
	other := New(signingKey, "glint", "glint-billing")
	token, err := other.GenerateToken("user-42", "compliance_operator", time.Hour)
	require.NoError(t, err)

	svc := New(signingKey, "glint", "glint-audit")
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsWrongIssuer(t *testing.T) {
	other := New(signingKey, "staging", "glint-audit")
	token, err := other.GenerateToken("user-42", "compliance_operator", time.Hour)
	require.NoError(t, err)

	svc := New(signingKey, "glint", "glint-audit")
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsWrongKey(t *testing.T) {
	other := New("another-key", "glint", "glint-audit")
	token, err := other.GenerateToken("user-42", "compliance_operator", time.Hour)
	require.NoError(t, err)

	svc := New(signingKey, "glint", "glint-audit")
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
