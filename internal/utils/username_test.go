package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameBase(t *testing.T) {
	assert.Equal(t, "jose", UsernameBase("José"))
	assert.Equal(t, "maryann", UsernameBase("Mary Ann"))
	assert.Equal(t, "user", UsernameBase(""))
	assert.Len(t, UsernameBase("Bartholomewbartholomewbartholomew"), maxUsernameBase)
}

func TestGenerateUsername(t *testing.T) {
	name, err := GenerateUsername("Alice")
	require.NoError(t, err)
	assert.Regexp(t, `^alice[0-9]{4}$`, name)
	assert.True(t, IsValidUsername(name))
}

func TestIsValidUsername(t *testing.T) {
	assert.True(t, IsValidUsername("new_name_1"))
	assert.False(t, IsValidUsername("ab"))
	assert.False(t, IsValidUsername("Has-Dash"))
	assert.Equal(t, "mixedcase", NormalizeUsername("  MixedCase "))
}
