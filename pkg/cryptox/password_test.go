package cryptox_test

import (
	"strings"
	"testing"

	"github.com/antistereov/singularity-core/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher(t *testing.T) {
	t.Parallel()

	h := cryptox.PasswordHasher{Pepper: "test-pepper"}

	t.Run("hash and verify round trip", func(t *testing.T) {
		encoded, err := h.Hash("correct horse battery staple")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

		require.NoError(t, h.Verify("correct horse battery staple", encoded))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		encoded, err := h.Hash("password-one")
		require.NoError(t, err)

		err = h.Verify("password-two", encoded)
		require.ErrorIs(t, err, cryptox.ErrPasswordMismatch)
	})

	t.Run("different pepper fails", func(t *testing.T) {
		encoded, err := h.Hash("shared-password")
		require.NoError(t, err)

		other := cryptox.PasswordHasher{Pepper: "other-pepper"}
		err = other.Verify("shared-password", encoded)
		require.ErrorIs(t, err, cryptox.ErrPasswordMismatch)
	})

	t.Run("salts differ between hashes", func(t *testing.T) {
		a, err := h.Hash("same")
		require.NoError(t, err)
		b, err := h.Hash("same")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("malformed hash rejected", func(t *testing.T) {
		require.Error(t, h.Verify("x", "not-a-hash"))
		require.Error(t, h.Verify("x", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"))
	})
}

func TestLoadOrCreatePepper(t *testing.T) {
	t.Parallel()

	file := t.TempDir() + "/pepper"

	created, err := cryptox.LoadOrCreatePepper(file)
	require.NoError(t, err)
	require.NotEmpty(t, created)

	loaded, err := cryptox.LoadOrCreatePepper(file)
	require.NoError(t, err)
	require.Equal(t, created, loaded, "second load must reuse the persisted pepper")
}
