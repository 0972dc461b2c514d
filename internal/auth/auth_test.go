package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 30*time.Minute)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 30*time.Minute)
	issued := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	token, err := NewTokenIssuer("another-secret-0123456789", time.Minute).Issue("alice")
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}
