package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antistereov/singularity-core/internal/core/cache"
	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/slogx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
)

// AccessTokenService issues and validates short-lived access tokens.
// Every issued token id is registered in the revocation cache; a token
// the cache does not vouch for is invalid regardless of its signature.
type AccessTokenService struct {
	Codec *tokenx.Codec
	Cache *cache.RevocationCache
	Store store.Store
	TTL   time.Duration
}

// Create mints an access token for (userID, sessionID). Issuance and
// cache registration are one unit: if registration fails no token is
// returned, so there can never be a signed token the cache knows
// nothing about.
func (s *AccessTokenService) Create(ctx context.Context, userID, sessionID string) (domain.Token, error) {
	now := time.Now().UTC()
	jti := idx.New().String()

	claims := tokenx.NewClaims(tokenx.TypeAccess, userID, jti, s.TTL, s.Codec.Issuer, now)
	claims.SID = sessionID

	raw, err := s.Codec.Encode(claims)
	if err != nil {
		return domain.Token{}, fmt.Errorf("encode access token: %w", err)
	}

	if err := s.Cache.Register(ctx, userID, jti, s.TTL); err != nil {
		return domain.Token{}, fmt.Errorf("register access token: %w", err)
	}

	return domain.Token{Raw: raw, ID: jti, ExpiresAt: now.Add(s.TTL)}, nil
}

// Extract validates raw and returns the authenticated principal,
// including the persisted group memberships and admin flag needed for
// authorization. Revocation-cache misses and unknown users both read as
// ErrInvalidToken.
func (s *AccessTokenService) Extract(ctx context.Context, raw string) (domain.Principal, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Decode(raw, tokenx.TypeAccess)
	if err != nil {
		l.Debug("access token rejected", slog.String("reason", err.Error()))
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.SID == "" || claims.ID == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing session or token id", ErrInvalidToken)
	}

	if !s.Cache.IsTokenValid(ctx, claims.Subject, claims.ID) {
		l.Debug("access token revoked",
			slog.String("user_id", claims.Subject),
			slog.String("token_id", claims.ID))
		return domain.Principal{}, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, fmt.Errorf("%w: unknown principal", ErrInvalidToken)
		}
		return domain.Principal{}, err
	}

	return domain.Principal{
		UserID:    user.ID,
		SessionID: claims.SID,
		TokenID:   claims.ID,
		GroupIDs:  user.GroupIDs,
		Admin:     user.Admin,
	}, nil
}
