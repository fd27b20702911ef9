package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testUser(email string) domain.User {
	return domain.User{
		ID:                      "01J0000000000000000000000" + email[:1],
		Email:                   email,
		Name:                    "Test User",
		PasswordHash:            "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		EmailVerificationSecret: uuid.NewString(),
		GroupIDs:                []string{},
	}
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and fetch", func(t *testing.T) {
		u := testUser("alice@example.com")
		u.GroupIDs = []string{"staff", "beta"}
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, got.Email)
		require.Equal(t, []string{"staff", "beta"}, got.GroupIDs)
		require.Nil(t, got.EmailVerified)
		require.Nil(t, got.TOTPSecret)
		require.False(t, got.CreatedAt.IsZero())

		byEmail, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		u := testUser("bob@example.com")
		require.NoError(t, s.Users().CreateUser(ctx, u))

		dup := testUser("bob@example.com")
		dup.ID = "01J000000000000000000000DUP"
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing user maps to not found", func(t *testing.T) {
		_, err := s.Users().GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("consume email verification secret is single use", func(t *testing.T) {
		u := testUser("carol@example.com")
		require.NoError(t, s.Users().CreateUser(ctx, u))

		ok, err := s.Users().ConsumeEmailVerificationSecret(
			ctx, u.ID, u.EmailVerificationSecret, uuid.NewString())
		require.NoError(t, err)
		require.True(t, ok)

		// Second consumption with the original secret loses.
		ok, err = s.Users().ConsumeEmailVerificationSecret(
			ctx, u.ID, u.EmailVerificationSecret, uuid.NewString())
		require.NoError(t, err)
		require.False(t, ok)

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.EmailVerified)
		require.NotEqual(t, u.EmailVerificationSecret, got.EmailVerificationSecret)
	})

	t.Run("rotate email verification secret", func(t *testing.T) {
		u := testUser("dave@example.com")
		require.NoError(t, s.Users().CreateUser(ctx, u))

		next := uuid.NewString()
		require.NoError(t, s.Users().RotateEmailVerificationSecret(ctx, u.ID, next))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, next, got.EmailVerificationSecret)

		err = s.Users().RotateEmailVerificationSecret(ctx, "nope", next)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessionsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := testUser("eve@example.com")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	now := time.Now().UTC().Truncate(time.Microsecond)
	sess := domain.Session{
		ID:             uuid.NewString(),
		UserID:         u.ID,
		RefreshTokenID: uuid.NewString(),
		Browser:        "Firefox",
		OS:             "Linux",
		IPAddress:      "203.0.113.7",
		LastActive:     now,
		CreatedAt:      now,
	}

	t.Run("upsert inserts then rotates", func(t *testing.T) {
		require.NoError(t, s.Sessions().UpsertSession(ctx, sess))

		got, err := s.Sessions().GetSession(ctx, u.ID, sess.ID)
		require.NoError(t, err)
		require.Equal(t, sess.RefreshTokenID, got.RefreshTokenID)
		require.Equal(t, "Firefox", got.Browser)

		rotated := sess
		rotated.RefreshTokenID = uuid.NewString()
		rotated.LastActive = now.Add(time.Minute)
		require.NoError(t, s.Sessions().UpsertSession(ctx, rotated))

		got, err = s.Sessions().GetSession(ctx, u.ID, sess.ID)
		require.NoError(t, err)
		require.Equal(t, rotated.RefreshTokenID, got.RefreshTokenID)
		require.Equal(t, rotated.LastActive, got.LastActive)
	})

	t.Run("list orders by activity", func(t *testing.T) {
		second := sess
		second.ID = uuid.NewString()
		second.LastActive = now.Add(time.Hour)
		require.NoError(t, s.Sessions().UpsertSession(ctx, second))

		sessions, err := s.Sessions().ListUserSessions(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		require.Equal(t, second.ID, sessions[0].ID)
	})

	t.Run("delete idle sessions", func(t *testing.T) {
		require.NoError(t, s.Sessions().DeleteIdleSessions(ctx, now.Add(30*time.Minute)))

		sessions, err := s.Sessions().ListUserSessions(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
	})

	t.Run("delete user sessions", func(t *testing.T) {
		require.NoError(t, s.Sessions().DeleteUserSessions(ctx, u.ID))

		sessions, err := s.Sessions().ListUserSessions(ctx, u.ID)
		require.NoError(t, err)
		require.Empty(t, sessions)
	})
}

func TestContentsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	content := domain.Content{
		ID:     "01J00000000000000000000CNT1",
		Key:    "notes/welcome",
		Name:   "Welcome",
		Access: domain.NewAccessDetails("owner-1"),
	}

	t.Run("create and fetch by key", func(t *testing.T) {
		require.NoError(t, s.Contents().CreateContent(ctx, content))

		got, err := s.Contents().GetContentByKey(ctx, content.Key)
		require.NoError(t, err)
		require.Equal(t, "owner-1", got.Access.OwnerID)
		require.Equal(t, domain.VisibilityPrivate, got.Access.Visibility)
		require.EqualValues(t, 1, got.Version)
	})

	t.Run("save bumps version", func(t *testing.T) {
		got, err := s.Contents().GetContentByKey(ctx, content.Key)
		require.NoError(t, err)

		got.Access = got.Access.Share(domain.SubjectUser, "friend-1", domain.RoleViewer)
		require.NoError(t, s.Contents().SaveContent(ctx, got))

		reread, err := s.Contents().GetContentByKey(ctx, content.Key)
		require.NoError(t, err)
		require.EqualValues(t, 2, reread.Version)
		require.Contains(t, reread.Access.Users.Viewers, "friend-1")
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale, err := s.Contents().GetContentByKey(ctx, content.Key)
		require.NoError(t, err)

		fresh := stale
		fresh.Name = "Welcome v2"
		require.NoError(t, s.Contents().SaveContent(ctx, fresh))

		stale.Name = "lost update"
		err = s.Contents().SaveContent(ctx, stale)
		require.ErrorIs(t, err, store.ErrVersionConflict)
	})
}

func TestInvitationsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	inv := domain.Invitation{
		ID:         "01J00000000000000000000INV1",
		ContentKey: "notes/welcome",
		Email:      "guest@example.com",
		Role:       domain.RoleEditor,
		CreatedBy:  "owner-1",
		ExpiresAt:  now.Add(7 * 24 * time.Hour),
		CreatedAt:  now,
	}

	t.Run("create fetch delete", func(t *testing.T) {
		require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))

		got, err := s.Invitations().GetInvitation(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleEditor, got.Role)
		require.Equal(t, inv.ExpiresAt, got.ExpiresAt)

		require.NoError(t, s.Invitations().DeleteInvitation(ctx, inv.ID))
		_, err = s.Invitations().GetInvitation(ctx, inv.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		expired := inv
		expired.ID = "01J00000000000000000000INV2"
		expired.ExpiresAt = now.Add(-time.Hour)
		require.NoError(t, s.Invitations().CreateInvitation(ctx, expired))

		live := inv
		live.ID = "01J00000000000000000000INV3"
		require.NoError(t, s.Invitations().CreateInvitation(ctx, live))

		require.NoError(t, s.Invitations().DeleteExpiredInvitations(ctx, now))

		_, err := s.Invitations().GetInvitation(ctx, expired.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Invitations().GetInvitation(ctx, live.ID)
		require.NoError(t, err)
	})
}

func TestSecretsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mk := func(age time.Duration) domain.Secret {
		return domain.Secret{
			ID:             uuid.New(),
			KID:            uuid.NewString(),
			ValueEncrypted: []byte("ciphertext"),
			CreatedAt:      time.Now().UTC().Add(-age).Truncate(time.Microsecond),
		}
	}

	old := mk(48 * time.Hour)
	mid := mk(24 * time.Hour)
	cur := mk(0)

	for _, sec := range []domain.Secret{old, mid, cur} {
		require.NoError(t, s.Secrets().CreateSecret(ctx, sec))
	}

	t.Run("current is the newest", func(t *testing.T) {
		got, err := s.Secrets().GetCurrentSecret(ctx)
		require.NoError(t, err)
		require.Equal(t, cur.KID, got.KID)
		require.Equal(t, []byte("ciphertext"), got.ValueEncrypted)
	})

	t.Run("list returns oldest first", func(t *testing.T) {
		all, err := s.Secrets().ListSecrets(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, old.KID, all[0].KID)
		require.Equal(t, cur.KID, all[2].KID)
	})

	t.Run("age out keeps the newest", func(t *testing.T) {
		// Cutoff in the future would otherwise delete everything.
		require.NoError(t, s.Secrets().DeleteSecretsCreatedBefore(ctx, time.Now().UTC().Add(time.Hour)))

		all, err := s.Secrets().ListSecrets(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.Equal(t, cur.KID, all[0].KID)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("commit on nil", func(t *testing.T) {
		u := testUser("tx-commit@example.com")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, u)
		})
		require.NoError(t, err)

		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		u := testUser("tx-rollback@example.com")
		sentinel := store.ErrVersionConflict
		err := s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		_, err = s.Users().GetUserByID(ctx, u.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
