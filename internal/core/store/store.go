package store

import (
	"context"
	"errors"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrVersionConflict reports a lost optimistic-concurrency race on a
	// versioned document; the caller must reload and retry or give up.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement it. Sub-repositories keep concerns separated and make
// transaction scoping explicit.
type Store interface {
	Users() Users
	Sessions() Sessions
	Contents() Contents
	Invitations() Invitations
	Secrets() Secrets

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. Preferred over Tx for multi-step mutations
	// (invitation acceptance, secret rotation).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves the invitee during invitation acceptance
	// and the subject during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetGroupIDs replaces a user's group memberships. Callers must
	// follow up with a revocation-cache invalidate-all so stale tokens
	// cannot keep the old memberships alive.
	SetGroupIDs(ctx context.Context, userID string, groupIDs []string) error

	// ConsumeEmailVerificationSecret marks the email verified and swaps
	// in nextSecret, but only when the stored secret still equals
	// expectedSecret. Returns false when a concurrent verification (or a
	// rotation) won the race; the conditional update is what makes
	// verification tokens single-use.
	ConsumeEmailVerificationSecret(ctx context.Context, userID, expectedSecret, nextSecret string) (bool, error)

	// RotateEmailVerificationSecret replaces the stored secret,
	// invalidating all previously issued verification tokens.
	RotateEmailVerificationSecret(ctx context.Context, userID, newSecret string) error

	DeleteUser(ctx context.Context, userID string) error
}

type Sessions interface {
	// UpsertSession writes the session record in a single atomic
	// statement, serializing refresh-token rotation per (user, session):
	// concurrent writers cannot interleave a read-modify-write.
	UpsertSession(ctx context.Context, s domain.Session) error

	GetSession(ctx context.Context, userID, sessionID string) (domain.Session, error)

	ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error)

	DeleteSession(ctx context.Context, userID, sessionID string) error

	// DeleteUserSessions backs logout-all and account deletion.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteIdleSessions is housekeeping for sessions whose refresh
	// token must have expired anyway.
	DeleteIdleSessions(ctx context.Context, lastActiveBefore time.Time) error
}

type Contents interface {
	CreateContent(ctx context.Context, c domain.Content) error

	GetContentByKey(ctx context.Context, key string) (domain.Content, error)

	// SaveContent persists a mutated content document iff the stored
	// version still equals c.Version, then bumps it. Returns
	// ErrVersionConflict on a lost race.
	SaveContent(ctx context.Context, c domain.Content) error

	DeleteContent(ctx context.Context, id string) error
}

type Invitations interface {
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	GetInvitation(ctx context.Context, id string) (domain.Invitation, error)

	// DeleteInvitation consumes an invitation. ErrNotFound signals it
	// was already consumed (or revoked) by a concurrent acceptance.
	DeleteInvitation(ctx context.Context, id string) error

	DeleteExpiredInvitations(ctx context.Context, now time.Time) error
}

type Secrets interface {
	CreateSecret(ctx context.Context, s domain.Secret) error

	// GetCurrentSecret returns the newest secret, the one that signs
	// new tokens.
	GetCurrentSecret(ctx context.Context) (domain.Secret, error)

	ListSecrets(ctx context.Context) ([]domain.Secret, error)

	// DeleteSecretsCreatedBefore ages out secrets that can no longer
	// have live tokens. The cutoff must honor the refresh-token TTL.
	DeleteSecretsCreatedBefore(ctx context.Context, cutoff time.Time) error
}
