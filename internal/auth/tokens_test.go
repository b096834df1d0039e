package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken(t *testing.T) {
	plaintext, hash, err := NewRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, plaintext)
	assert.Len(t, hash, 64) // sha256 hex
	assert.Equal(t, HashRefreshToken(plaintext), hash)

	plaintext2, hash2, err := NewRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, plaintext2)
	assert.NotEqual(t, hash, hash2)
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashRefreshToken("abc"), HashRefreshToken("abc"))
	assert.NotEqual(t, HashRefreshToken("abc"), HashRefreshToken("abd"))
}
