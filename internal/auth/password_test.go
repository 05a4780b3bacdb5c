package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "Correct horse"))
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashPassword_Rejects(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("x", maxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCheckPassword_EmptyHash(t *testing.T) {
	assert.False(t, CheckPassword("", "anything"))
}
