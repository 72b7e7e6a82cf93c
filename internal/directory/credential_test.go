package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	_, err := store.Password()
	assert.ErrorIs(t, err, ErrMissingCredential)

	store.Set(PasswordKey, "secret")
	pwd, err := store.Password()
	require.NoError(t, err)
	assert.Equal(t, "secret", pwd)

	v, ok := store.Get(PasswordKey)
	assert.True(t, ok)
	assert.Equal(t, "secret", v)

	store.Set(PasswordKey, "")
	_, err = store.Password()
	assert.ErrorIs(t, err, ErrMissingCredential)

	store.Set(PasswordKey, "other")
	store.Delete(PasswordKey)
	_, ok = store.Get(PasswordKey)
	assert.False(t, ok)
}

func TestStaticPassword(t *testing.T) {
	_, err := StaticPassword("").Password()
	assert.ErrorIs(t, err, ErrMissingCredential)

	pwd, err := StaticPassword("secret").Password()
	require.NoError(t, err)
	assert.Equal(t, "secret", pwd)
}

func TestEnvPassword(t *testing.T) {
	const key = "EXPOSER_TEST_PASSWORD"

	t.Setenv(key, "")
	_, err := EnvPassword(key).Password()
	assert.ErrorIs(t, err, ErrMissingCredential)

	t.Setenv(key, "from-env")
	pwd, err := EnvPassword(key).Password()
	require.NoError(t, err)
	assert.Equal(t, "from-env", pwd)
}

func TestStatusErrorMatching(t *testing.T) {
	tests := []struct {
		status   int
		rejected bool
	}{
		{401, true},
		{403, true},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		err := &StatusError{Op: "op", StatusCode: tt.status}
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
		if tt.rejected {
			assert.ErrorIs(t, err, ErrAuthRejected)
		} else {
			assert.NotErrorIs(t, err, ErrAuthRejected)
		}
	}
}
