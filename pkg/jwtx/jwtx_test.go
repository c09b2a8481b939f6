package jwtx

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewEphemeralSigner("test-1")
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifier(keys, "warden")

	now := time.Now().UTC()
	claims := NewAccessClaims("user-1", "sess-1", "ops@example.com",
		[]string{"administrator"}, 15*time.Minute, "warden", now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "sess-1", got.SID)
	require.Equal(t, "ops@example.com", got.Email)
	require.Equal(t, []string{"administrator"}, got.Roles)
}

func TestVerifyExpiredIsDistinctFromInvalid(t *testing.T) {
	signer, err := NewEphemeralSigner("test-1")
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifier(keys, "warden")

	// Issued an hour ago with a one-minute TTL.
	claims := NewAccessClaims("user-1", "sess-1", "ops@example.com", nil,
		time.Minute, "warden", time.Now().UTC().Add(-time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrExpired)

	_, err = verifier.Verify("not.a.jwt")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrExpired))
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	signer, err := NewEphemeralSigner("test-1")
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifier(keys, "warden")

	claims := NewAccessClaims("user-1", "sess-1", "ops@example.com", nil,
		time.Minute, "someone-else", time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	signer, err := NewEphemeralSigner("test-1")
	require.NoError(t, err)
	other, err := NewEphemeralSigner("test-1") // same kid, different key
	require.NoError(t, err)

	keys := NewKeySet()
	keys.AddSigner(signer)
	verifier := NewVerifier(keys, "warden")

	claims := NewAccessClaims("user-1", "sess-1", "ops@example.com", nil,
		time.Minute, "warden", time.Now().UTC())
	token, err := other.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}
