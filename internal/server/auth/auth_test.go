package auth

import (
	"strings"
	"testing"

	"hostexposer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPassword(t *testing.T) {
	pwd, err := RandomPassword(16)
	require.NoError(t, err)
	assert.Len(t, pwd, 16)
	for _, r := range pwd {
		assert.True(t, strings.ContainsRune(Charset, r), "unexpected rune %q", r)
	}
	assert.NotContains(t, pwd, "O")
	assert.NotContains(t, pwd, "0")

	other, err := RandomPassword(16)
	require.NoError(t, err)
	assert.NotEqual(t, pwd, other)

	_, err = RandomPassword(0)
	assert.Error(t, err)
}

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator("secret")

	assert.Equal(t, "c2VjcmV0", EncodePassword("secret"))
	assert.NoError(t, a.CheckEncoded("c2VjcmV0"))
	assert.ErrorIs(t, a.CheckEncoded("secret"), types.ErrInvalidPassword)

	assert.NoError(t, a.CheckHeader("Basic c2VjcmV0"))
	assert.ErrorIs(t, a.CheckHeader("Bearer c2VjcmV0"), types.ErrInvalidPassword)
	assert.ErrorIs(t, a.CheckHeader(""), types.ErrInvalidPassword)
	assert.ErrorIs(t, a.CheckHeader("Basic d3Jvbmc="), types.ErrInvalidPassword)
}
