package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/geo"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/slogx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
	"github.com/google/uuid"
)

// RefreshTokenService issues long-lived refresh tokens bound to a
// session record. The session stores the id of the one refresh token it
// currently accepts, so rotating that id invalidates every refresh
// token issued earlier for the session without a revocation cache.
type RefreshTokenService struct {
	Codec *tokenx.Codec
	Store store.Store
	Geo   geo.Resolver
	TTL   time.Duration
}

// Create mints a refresh token for the user and upserts the session
// record with the new token id and client metadata. Geolocation is
// best-effort; resolver failure never fails issuance. An empty
// client.SessionID starts a new session.
func (s *RefreshTokenService) Create(ctx context.Context, userID string, client domain.ClientInfo) (domain.Token, string, error) {
	now := time.Now().UTC()
	jti := idx.New().String()

	sessionID := client.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	claims := tokenx.NewClaims(tokenx.TypeRefresh, userID, jti, s.TTL, s.Codec.Issuer, now)
	claims.SID = sessionID

	raw, err := s.Codec.Encode(claims)
	if err != nil {
		return domain.Token{}, "", fmt.Errorf("encode refresh token: %w", err)
	}

	var loc geo.Location
	if s.Geo != nil {
		if loc, err = s.Geo.Resolve(ctx, client.IPAddress); err != nil {
			slogx.FromContext(ctx).Warn("geolocation lookup failed",
				slog.String("error", err.Error()))
			loc = geo.Location{}
		}
	}

	session := domain.Session{
		ID:             sessionID,
		UserID:         userID,
		RefreshTokenID: jti,
		Browser:        client.Browser,
		OS:             client.OS,
		IPAddress:      client.IPAddress,
		City:           loc.City,
		Country:        loc.Country,
		LastActive:     now,
		CreatedAt:      now,
	}
	if err := s.Store.Sessions().UpsertSession(ctx, session); err != nil {
		return domain.Token{}, "", fmt.Errorf("upsert session: %w", err)
	}

	return domain.Token{Raw: raw, ID: jti, ExpiresAt: now.Add(s.TTL)}, sessionID, nil
}

// Extract validates raw against the signature, the user's existence and
// the session binding. A validly signed token whose id no longer matches
// the session's stored refresh-token id fails with ErrSessionMismatch:
// that is how rotation invalidates earlier tokens.
func (s *RefreshTokenService) Extract(ctx context.Context, raw string) (tokenx.Claims, error) {
	claims, err := s.Codec.Decode(raw, tokenx.TypeRefresh)
	if err != nil {
		return tokenx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.SID == "" || claims.ID == "" {
		return tokenx.Claims{}, fmt.Errorf("%w: missing session or token id", ErrInvalidToken)
	}

	if _, err := s.Store.Users().GetUserByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return tokenx.Claims{}, fmt.Errorf("%w: unknown principal", ErrInvalidToken)
		}
		return tokenx.Claims{}, err
	}

	session, err := s.Store.Sessions().GetSession(ctx, claims.Subject, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return tokenx.Claims{}, fmt.Errorf("%w: unknown session", ErrSessionMismatch)
		}
		return tokenx.Claims{}, err
	}

	if session.RefreshTokenID != claims.ID {
		slogx.FromContext(ctx).Info("refresh token superseded",
			slog.String("user_id", claims.Subject),
			slog.String("session_id", claims.SID))
		return tokenx.Claims{}, ErrSessionMismatch
	}

	return claims, nil
}
