package tokenx_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/antistereov/singularity-core/pkg/tokenx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testIssuer = "singularity-core"

func newTestCodec(t *testing.T) *tokenx.Codec {
	t.Helper()

	keys := tokenx.NewKeychain()
	require.NoError(t, keys.AddCurrent(tokenx.Secret{
		ID:        uuid.New(),
		KID:       "kid-1",
		Value:     []byte("test-signing-secret-kid-1"),
		CreatedAt: time.Now().UTC(),
	}))

	return &tokenx.Codec{Keys: keys, Issuer: testIssuer}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	now := time.Now().UTC()

	claims := tokenx.NewClaims(tokenx.TypeAccess, "user-1", "jti-1", time.Minute, testIssuer, now)
	claims.SID = "session-1"

	raw, err := codec.Encode(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(raw, "."), 3)

	decoded, err := codec.Decode(raw, tokenx.TypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", decoded.Subject)
	require.Equal(t, "session-1", decoded.SID)
	require.Equal(t, "jti-1", decoded.ID)
	require.Equal(t, tokenx.TypeAccess, decoded.TokenType)
}

func TestCodecRejectsWrongType(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := tokenx.NewClaims(tokenx.TypeRefresh, "user-1", "jti-1", time.Minute, testIssuer, time.Now().UTC())

	raw, err := codec.Encode(claims)
	require.NoError(t, err)

	_, err = codec.Decode(raw, tokenx.TypeAccess)
	require.ErrorIs(t, err, tokenx.ErrWrongType)
}

func TestCodecRejectsExpired(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	// Issued two minutes ago, expired one minute ago. Signature is valid.
	claims := tokenx.NewClaims(tokenx.TypeAccess, "user-1", "jti-1", time.Minute, testIssuer,
		time.Now().UTC().Add(-2*time.Minute))

	raw, err := codec.Encode(claims)
	require.NoError(t, err)

	_, err = codec.Decode(raw, tokenx.TypeAccess)
	require.ErrorIs(t, err, tokenx.ErrExpired)
}

func TestCodecRejectsNotYetValid(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := tokenx.NewClaims(tokenx.TypeAccess, "user-1", "jti-1", time.Minute, testIssuer, time.Now().UTC())
	claims.NotBefore.Time = time.Now().UTC().Add(time.Hour)

	raw, err := codec.Encode(claims)
	require.NoError(t, err)

	_, err = codec.Decode(raw, tokenx.TypeAccess)
	require.ErrorIs(t, err, tokenx.ErrNotYetValid)
}

func TestCodecRejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := tokenx.NewClaims(tokenx.TypeAccess, "user-1", "jti-1", time.Minute, testIssuer, time.Now().UTC())

	raw, err := codec.Encode(claims)
	require.NoError(t, err)

	// Swap the subject inside the payload segment and reassemble, keeping
	// the original signature. Shape stays valid, signature does not.
	parts := strings.Split(raw, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	tampered := strings.Replace(string(payload), "user-1", "user-2", 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(tampered))

	_, err = codec.Decode(strings.Join(parts, "."), tokenx.TypeAccess)
	require.ErrorIs(t, err, tokenx.ErrSignature)
}

func TestCodecRejectsMalformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := codec.Decode(raw, tokenx.TypeAccess)
		require.ErrorIs(t, err, tokenx.ErrMalformed, "input %q", raw)
	}
}

func TestCodecRejectsUnknownKeyID(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := tokenx.NewClaims(tokenx.TypeAccess, "user-1", "jti-1", time.Minute, testIssuer, time.Now().UTC())

	raw, err := codec.Encode(claims)
	require.NoError(t, err)

	// A verifier whose keychain never saw kid-1.
	other := tokenx.NewKeychain()
	require.NoError(t, other.AddCurrent(tokenx.Secret{KID: "kid-9", Value: []byte("other-secret")}))
	verifier := &tokenx.Codec{Keys: other, Issuer: testIssuer}

	_, err = verifier.Decode(raw, tokenx.TypeAccess)
	require.ErrorIs(t, err, tokenx.ErrUnknownKeyID)
}

func TestCodecVerifiesAcrossRotation(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	claims := tokenx.NewClaims(tokenx.TypeRefresh, "user-1", "jti-old", time.Hour, testIssuer, time.Now().UTC())

	oldToken, err := codec.Encode(claims)
	require.NoError(t, err)

	// Rotate: new current secret, old one kept for verification.
	require.NoError(t, codec.Keys.AddCurrent(tokenx.Secret{KID: "kid-2", Value: []byte("rotated-secret")}))

	decoded, err := codec.Decode(oldToken, tokenx.TypeRefresh)
	require.NoError(t, err)
	require.Equal(t, "jti-old", decoded.ID)

	// New tokens sign with the new secret and verify too.
	newToken, err := codec.Encode(tokenx.NewClaims(tokenx.TypeRefresh, "user-1", "jti-new", time.Hour, testIssuer, time.Now().UTC()))
	require.NoError(t, err)
	_, err = codec.Decode(newToken, tokenx.TypeRefresh)
	require.NoError(t, err)
}

func TestEncodeValidatesClaims(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	t.Run("missing type", func(t *testing.T) {
		claims := tokenx.NewClaims("", "user-1", "jti", time.Minute, testIssuer, time.Now().UTC())
		_, err := codec.Encode(claims)
		require.ErrorIs(t, err, tokenx.ErrInvalidClaims)
	})

	t.Run("expiry before issue", func(t *testing.T) {
		claims := tokenx.NewClaims(tokenx.TypeAccess, "user-1", "jti", -time.Minute, testIssuer, time.Now().UTC())
		_, err := codec.Encode(claims)
		require.ErrorIs(t, err, tokenx.ErrInvalidClaims)
	})
}

func TestKeychain(t *testing.T) {
	t.Parallel()

	keys := tokenx.NewKeychain()

	t.Run("empty keychain has no current", func(t *testing.T) {
		_, err := keys.Current()
		require.ErrorIs(t, err, tokenx.ErrNoSecret)
	})

	t.Run("add current and lookup", func(t *testing.T) {
		require.NoError(t, keys.AddCurrent(tokenx.Secret{KID: "a", Value: []byte("va")}))
		require.NoError(t, keys.Add(tokenx.Secret{KID: "b", Value: []byte("vb")}))

		current, err := keys.Current()
		require.NoError(t, err)
		require.Equal(t, "a", current.KID)

		s, ok := keys.ByKID("b")
		require.True(t, ok)
		require.Equal(t, []byte("vb"), s.Value)
	})

	t.Run("set current", func(t *testing.T) {
		require.NoError(t, keys.SetCurrent("b"))
		current, err := keys.Current()
		require.NoError(t, err)
		require.Equal(t, "b", current.KID)

		require.ErrorIs(t, keys.SetCurrent("missing"), tokenx.ErrNoSecret)
	})

	t.Run("remove never drops signing secret", func(t *testing.T) {
		keys.Remove("b")
		_, ok := keys.ByKID("b")
		require.True(t, ok)

		keys.Remove("a")
		_, ok = keys.ByKID("a")
		require.False(t, ok)
	})

	t.Run("rejects incomplete secret", func(t *testing.T) {
		require.Error(t, keys.Add(tokenx.Secret{KID: "", Value: []byte("x")}))
		require.Error(t, keys.Add(tokenx.Secret{KID: "x"}))
	})
}
