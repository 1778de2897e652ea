package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_Roundtrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), -time.Second)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("right-secret"), time.Hour)
	other := NewTokenIssuer([]byte("wrong-secret"), time.Hour)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_TamperedSignature(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	// Flip a byte at the end of the signature segment.
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = issuer.Verify(string(tampered))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)

	_, err := issuer.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.Verify("")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
