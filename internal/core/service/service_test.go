package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/antistereov/singularity-core/internal/core/cache"
	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/geo"
	"github.com/antistereov/singularity-core/internal/core/notify"
	"github.com/antistereov/singularity-core/internal/core/store/drivers/sqlite"
	"github.com/antistereov/singularity-core/pkg/cryptox"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testEnv wires every service against in-memory backends.
type testEnv struct {
	store    *sqlite.Store
	cache    *cache.RevocationCache
	redis    *miniredis.Miniredis
	keys     *tokenx.Keychain
	codec    *tokenx.Codec
	hasher   cryptox.PasswordHasher
	access   *AccessTokenService
	refresh  *RefreshTokenService
	session  *SessionTokenService
	stepup   *StepUpService
	account  *AccountService
	content  *ContentAuthorizationService
	invites  *InvitationService
	rotation *SecretRotationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	rc := cache.NewRevocationCache(rdb)

	keys := tokenx.NewKeychain()
	require.NoError(t, keys.AddCurrent(tokenx.Secret{
		ID:        uuid.New(),
		KID:       "test-key",
		Value:     []byte("0123456789abcdef0123456789abcdef"),
		CreatedAt: time.Now().UTC(),
	}))

	codec := &tokenx.Codec{Keys: keys, Issuer: "singularity-test", Leeway: time.Second}
	hasher := cryptox.PasswordHasher{Pepper: "test-pepper"}

	access := &AccessTokenService{Codec: codec, Cache: rc, Store: st, TTL: tokenx.DefaultAccessTTL}
	refresh := &RefreshTokenService{Codec: codec, Store: st, Geo: geo.NoopResolver{}, TTL: tokenx.DefaultRefreshTTL}
	session := &SessionTokenService{Codec: codec, TTL: tokenx.DefaultSessionTTL}
	stepup := &StepUpService{Codec: codec, Store: st, Hasher: hasher, TTL: tokenx.DefaultStepUpTTL}
	content := &ContentAuthorizationService{Store: st}

	account := &AccountService{
		Store:    st,
		Cache:    rc,
		Hasher:   hasher,
		Mailer:   notify.LogMailer{},
		Access:   access,
		Refresh:  refresh,
		Codec:    codec,
		EmailTTL: tokenx.DefaultEmailVerificationTTL,
	}

	invites := &InvitationService{
		Codec:   codec,
		Store:   st,
		Mailer:  notify.LogMailer{},
		Content: content,
		TTL:     tokenx.DefaultInvitationTTL,
	}

	cipher, err := cryptox.NewSecretCipher([]byte("test-master-key"))
	require.NoError(t, err)
	rotation := &SecretRotationService{
		Store:     st,
		Cipher:    cipher,
		Keys:      keys,
		Cache:     rc,
		RetainFor: tokenx.DefaultRefreshTTL + time.Hour,
	}

	return &testEnv{
		store:    st,
		cache:    rc,
		redis:    mr,
		keys:     keys,
		codec:    codec,
		hasher:   hasher,
		access:   access,
		refresh:  refresh,
		session:  session,
		stepup:   stepup,
		account:  account,
		content:  content,
		invites:  invites,
		rotation: rotation,
	}
}

// mustUser creates a user with a known password.
func (e *testEnv) mustUser(t *testing.T, email, password string) domain.User {
	t.Helper()

	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)

	u := domain.User{
		ID:                      idx.New().String(),
		Email:                   email,
		Name:                    "Test User",
		PasswordHash:            hash,
		EmailVerificationSecret: cryptox.MustGenerateToken(cryptox.TokenSize256),
		GroupIDs:                []string{},
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

// mustContent creates a content entity owned by ownerID.
func (e *testEnv) mustContent(t *testing.T, ownerID, key string) domain.Content {
	t.Helper()

	c, err := e.content.CreateContent(context.Background(),
		domain.Principal{UserID: ownerID}, key, "Test Content")
	require.NoError(t, err)
	return c
}
