package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureRandomString(t *testing.T) {
	a, err := GenerateSecureRandomString(32)
	require.NoError(t, err)
	b, err := GenerateSecureRandomString(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecureRandomString(0)
	assert.Error(t, err)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
	}

	_, err = GenerateNumericCode(-1)
	assert.Error(t, err)
}

func TestTokenHash(t *testing.T) {
	hash := HashToken("reset-token")
	assert.Len(t, hash, 64)
	assert.True(t, CompareTokenHash("reset-token", hash))
	assert.False(t, CompareTokenHash("other-token", hash))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Abc12345!")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345!", hash)
	assert.True(t, CheckPasswordHash("Abc12345!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
