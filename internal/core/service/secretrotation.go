package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antistereov/singularity-core/internal/core/cache"
	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/cryptox"
	"github.com/antistereov/singularity-core/pkg/slogx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
	"github.com/google/uuid"
)

// secretLength is the HMAC-SHA256 signing secret size in bytes.
const secretLength = 32

// SecretRotationService manages the signing secrets: persisted
// encrypted at rest, mirrored into the in-memory keychain the codec
// reads. Rotation installs a new current secret; old secrets remain
// verifiable until no token signed with them can still be alive, so a
// routine rotation never invalidates a live token.
type SecretRotationService struct {
	Store  store.Store
	Cipher *cryptox.SecretCipher
	Keys   *tokenx.Keychain
	Cache  *cache.RevocationCache

	// RetainFor is how long a superseded secret stays verifiable. Must
	// be at least the refresh-token TTL plus clock-skew grace.
	RetainFor time.Duration
}

// Bootstrap loads all persisted secrets into the keychain, generating
// the first secret on a fresh deployment. Must run before any codec
// use.
func (s *SecretRotationService) Bootstrap(ctx context.Context) error {
	secrets, err := s.Store.Secrets().ListSecrets(ctx)
	if err != nil {
		return fmt.Errorf("list signing secrets: %w", err)
	}

	if len(secrets) == 0 {
		slogx.FromContext(ctx).Info("no signing secret found, generating initial secret")
		return s.Rotate(ctx, false)
	}

	for _, sec := range secrets {
		value, err := s.Cipher.Decrypt(sec.ValueEncrypted)
		if err != nil {
			return fmt.Errorf("decrypt signing secret %s: %w", sec.KID, err)
		}
		if err := s.Keys.Add(tokenx.Secret{
			ID:        sec.ID,
			KID:       sec.KID,
			Value:     value,
			CreatedAt: sec.CreatedAt,
		}); err != nil {
			return err
		}
	}

	// ListSecrets is oldest-first; the newest signs.
	return s.Keys.SetCurrent(secrets[len(secrets)-1].KID)
}

// Rotate generates, persists and installs a new current signing secret.
// With revokeAll set (emergency rotation after suspected secret
// compromise) every cached access token is purged as well, forcing
// re-authentication everywhere; refresh tokens still verify against the
// retained old secrets and rotate naturally.
func (s *SecretRotationService) Rotate(ctx context.Context, revokeAll bool) error {
	value := make([]byte, secretLength)
	if _, err := rand.Read(value); err != nil {
		return fmt.Errorf("generate signing secret: %w", err)
	}

	encrypted, err := s.Cipher.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt signing secret: %w", err)
	}

	sec := domain.Secret{
		ID:             uuid.New(),
		KID:            uuid.NewString(),
		ValueEncrypted: encrypted,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.Store.Secrets().CreateSecret(ctx, sec); err != nil {
		return fmt.Errorf("persist signing secret: %w", err)
	}

	if err := s.Keys.AddCurrent(tokenx.Secret{
		ID:        sec.ID,
		KID:       sec.KID,
		Value:     value,
		CreatedAt: sec.CreatedAt,
	}); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("signing secret rotated",
		slog.String("kid", sec.KID),
		slog.Bool("revoke_all", revokeAll))

	if revokeAll {
		if err := s.Cache.PurgeAll(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DeleteExpired ages out secrets that can no longer have live tokens,
// from both the database and the keychain. The current secret is never
// touched.
func (s *SecretRotationService) DeleteExpired(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.RetainFor)

	secrets, err := s.Store.Secrets().ListSecrets(ctx)
	if err != nil {
		return err
	}
	current, err := s.Store.Secrets().GetCurrentSecret(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := s.Store.Secrets().DeleteSecretsCreatedBefore(ctx, cutoff); err != nil {
		return err
	}

	for _, sec := range secrets {
		if sec.KID == current.KID || !sec.CreatedAt.Before(cutoff) {
			continue
		}
		s.Keys.Remove(sec.KID)
	}
	return nil
}
