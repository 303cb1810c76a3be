package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSigner(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)

	token, claims, err := signer.Issue(ScopeBrowser)
	require.NoError(t, err)
	require.NotEmpty(t, claims.VisitorID)

	parsed, err := signer.Parse(token, ScopeBrowser)
	require.NoError(t, err)
	assert.Equal(t, claims.VisitorID, parsed.VisitorID)

	_, err = signer.Parse(token, ScopeSession)
	assert.ErrorIs(t, err, ErrInvalidToken, "scope must match")

	_, err = NewTokenSigner("other", time.Hour).Parse(token, ScopeBrowser)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("garbage", ScopeBrowser)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenSignerWithoutTTL(t *testing.T) {
	signer := NewTokenSigner("secret", 0)
	token, claims, err := signer.Issue(ScopeSession)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)

	_, err = signer.Parse(token, ScopeSession)
	assert.NoError(t, err)
}
