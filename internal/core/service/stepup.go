package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/cryptox"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
	"github.com/pquerna/otp/totp"
)

// StepUpProof is the fresh strong-authentication evidence required to
// mint a step-up token: the account password or a current TOTP code.
type StepUpProof struct {
	Password string
	TOTPCode string
}

// StepUpService issues short-lived proofs of recent strong
// authentication, required for sensitive operations. Tokens are
// stateless but bound to (user, session): a proof minted in one session
// can never authorize another.
type StepUpService struct {
	Codec  *tokenx.Codec
	Store  store.Store
	Hasher cryptox.PasswordHasher
	TTL    time.Duration
}

// Create verifies proof against the stored credentials and mints a
// step-up token for (userID, sessionID). TOTP is accepted only when the
// user has it enrolled.
func (s *StepUpService) Create(ctx context.Context, userID, sessionID string, proof StepUpProof) (domain.Token, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, ErrInvalidCredentials
		}
		return domain.Token{}, err
	}

	switch {
	case proof.TOTPCode != "":
		if user.TOTPSecret == nil || !totp.Validate(proof.TOTPCode, *user.TOTPSecret) {
			return domain.Token{}, ErrInvalidCredentials
		}
	case proof.Password != "":
		if err := s.Hasher.Verify(proof.Password, user.PasswordHash); err != nil {
			if errors.Is(err, cryptox.ErrPasswordMismatch) {
				return domain.Token{}, ErrInvalidCredentials
			}
			return domain.Token{}, err
		}
	default:
		return domain.Token{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := tokenx.NewClaims(tokenx.TypeStepUp, userID, idx.New().String(), s.TTL, s.Codec.Issuer, now)
	claims.SID = sessionID

	raw, err := s.Codec.Encode(claims)
	if err != nil {
		return domain.Token{}, fmt.Errorf("encode step-up token: %w", err)
	}
	return domain.Token{Raw: raw, ID: claims.ID, ExpiresAt: now.Add(s.TTL)}, nil
}

// Extract validates raw and enforces that it was minted for exactly the
// caller's current identity and session.
func (s *StepUpService) Extract(ctx context.Context, raw, currentUserID, currentSessionID string) (tokenx.Claims, error) {
	claims, err := s.Codec.Decode(raw, tokenx.TypeStepUp)
	if err != nil {
		return tokenx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject != currentUserID || claims.SID != currentSessionID {
		return tokenx.Claims{}, ErrSessionMismatch
	}
	return claims, nil
}
