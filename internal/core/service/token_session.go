package service

import (
	"context"
	"fmt"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
	"github.com/google/uuid"
)

// SessionTokenService issues stateless pre-authentication correlation
// tokens. They carry an ephemeral session id plus optional client
// metadata so a login or OAuth2 flow can be tied back to the session it
// started from. No cache or store interaction on either side.
type SessionTokenService struct {
	Codec *tokenx.Codec
	TTL   time.Duration
}

// Create mints a session token. An empty sessionID starts a fresh one.
func (s *SessionTokenService) Create(ctx context.Context, sessionID, browser, os string) (domain.Token, string, error) {
	now := time.Now().UTC()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	claims := tokenx.NewClaims(tokenx.TypeSession, sessionID, idx.New().String(), s.TTL, s.Codec.Issuer, now)
	claims.SID = sessionID
	claims.Browser = browser
	claims.OS = os

	raw, err := s.Codec.Encode(claims)
	if err != nil {
		return domain.Token{}, "", fmt.Errorf("encode session token: %w", err)
	}
	return domain.Token{Raw: raw, ID: claims.ID, ExpiresAt: now.Add(s.TTL)}, sessionID, nil
}

// Extract decodes raw and returns its claims (session id and client
// metadata).
func (s *SessionTokenService) Extract(ctx context.Context, raw string) (tokenx.Claims, error) {
	claims, err := s.Codec.Decode(raw, tokenx.TypeSession)
	if err != nil {
		return tokenx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.SID == "" {
		return tokenx.Claims{}, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims, nil
}
