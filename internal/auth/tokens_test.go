package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidateRoundTrip(t *testing.T) {
	owner := uuid.New()
	issuer := NewIssuer("test-secret", "http://localhost:8080")
	validator := NewValidator("test-secret", "http://localhost:8080")

	raw, err := issuer.Sign(owner, time.Hour)
	require.NoError(t, err)

	got, err := validator.OwnerID(raw)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestValidatorRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer("secret-a", "iss")
	validator := NewValidator("secret-b", "iss")

	raw, err := issuer.Sign(uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = validator.OwnerID(raw)
	require.Error(t, err)
}

func TestValidatorRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", "iss")
	validator := NewValidator("secret", "iss")

	raw, err := issuer.Sign(uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = validator.OwnerID(raw)
	require.Error(t, err)
}

func TestValidatorRejectsIssuerMismatch(t *testing.T) {
	issuer := NewIssuer("secret", "other")
	validator := NewValidator("secret", "iss")

	raw, err := issuer.Sign(uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = validator.OwnerID(raw)
	require.Error(t, err)
}
