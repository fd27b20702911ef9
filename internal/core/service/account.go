package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antistereov/singularity-core/internal/core/cache"
	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/notify"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/cryptox"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/slogx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
)

// AccountService owns account lifecycle: registration, login, logout,
// email verification, credential and group changes, deletion. Any
// change that affects what outstanding tokens may do ends with a
// revocation-cache invalidate-all so stale tokens die immediately.
type AccountService struct {
	Store   store.Store
	Cache   *cache.RevocationCache
	Hasher  cryptox.PasswordHasher
	Mailer  notify.Mailer
	Access  *AccessTokenService
	Refresh *RefreshTokenService

	Codec    *tokenx.Codec
	EmailTTL time.Duration
}

// Register creates a user and sends the verification mail. The mail is
// fire-and-forget; a delivery failure is logged, never surfaced.
func (s *AccountService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:                      idx.New().String(),
		Email:                   email,
		Name:                    name,
		PasswordHash:            hash,
		EmailVerificationSecret: cryptox.MustGenerateToken(cryptox.TokenSize256),
		GroupIDs:                []string{},
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.sendVerificationMail(ctx, user)
	return user, nil
}

// Login verifies credentials and issues a refresh/access token pair for
// a new (or resumed) session.
func (s *AccountService) Login(ctx context.Context, email, password string, client domain.ClientInfo) (domain.TokenPair, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so login does not reveal whether the
			// address exists.
			_ = s.Hasher.Verify(password, "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	return s.issuePair(ctx, user.ID, client)
}

// RefreshTokens validates a refresh token and rotates the session: a
// new refresh token replaces the presented one (which stops being
// accepted) and a fresh access token is issued.
func (s *AccountService) RefreshTokens(ctx context.Context, rawRefresh string, client domain.ClientInfo) (domain.TokenPair, error) {
	claims, err := s.Refresh.Extract(ctx, rawRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	client.SessionID = claims.SID
	return s.issuePair(ctx, claims.Subject, client)
}

func (s *AccountService) issuePair(ctx context.Context, userID string, client domain.ClientInfo) (domain.TokenPair, error) {
	refresh, sessionID, err := s.Refresh.Create(ctx, userID, client)
	if err != nil {
		return domain.TokenPair{}, err
	}

	access, err := s.Access.Create(ctx, userID, sessionID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{SessionID: sessionID, Access: access, Refresh: refresh}, nil
}

// Logout ends one session: the access token id leaves the revocation
// cache and the session record (with its refresh-token binding) is
// deleted.
func (s *AccountService) Logout(ctx context.Context, p domain.Principal) error {
	if err := s.Cache.Invalidate(ctx, p.UserID, p.TokenID); err != nil {
		return err
	}
	return s.Store.Sessions().DeleteSession(ctx, p.UserID, p.SessionID)
}

// LogoutAll ends every session of the user and revokes every live
// access token.
func (s *AccountService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.Cache.InvalidateAll(ctx, userID); err != nil {
		return err
	}
	return s.Store.Sessions().DeleteUserSessions(ctx, userID)
}

// ListSessions returns the user's device logins, most recent first.
func (s *AccountService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID)
}

// ChangePassword replaces the password hash and forces
// re-authentication everywhere.
func (s *AccountService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	return s.LogoutAll(ctx, userID)
}

// SetGroups replaces the user's group memberships. All tokens are
// revoked so no outstanding access token keeps authorizing with the old
// memberships.
func (s *AccountService) SetGroups(ctx context.Context, userID string, groupIDs []string) error {
	if err := s.Store.Users().SetGroupIDs(ctx, userID, groupIDs); err != nil {
		return err
	}
	return s.Cache.InvalidateAll(ctx, userID)
}

// DeleteAccount removes the user, their sessions and every live token.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.Cache.InvalidateAll(ctx, userID); err != nil {
		return err
	}
	if err := s.Store.Sessions().DeleteUserSessions(ctx, userID); err != nil {
		return err
	}
	return s.Store.Users().DeleteUser(ctx, userID)
}

// RequestEmailVerification re-sends the verification mail carrying a
// token minted from the user's currently stored secret.
func (s *AccountService) RequestEmailVerification(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	s.sendVerificationMail(ctx, user)
	return nil
}

// VerifyEmail consumes a verification token. The token's jti must equal
// the user's stored secret; consumption swaps in a fresh secret so the
// token (and every earlier one) can never verify again. A lost race
// against a concurrent verification or rotation is a denial, not a
// success.
func (s *AccountService) VerifyEmail(ctx context.Context, raw string) error {
	claims, err := s.Codec.Decode(raw, tokenx.TypeEmailVerification)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Email == "" {
		return fmt.Errorf("%w: missing email or secret", ErrInvalidToken)
	}

	next := cryptox.MustGenerateToken(cryptox.TokenSize256)
	ok, err := s.Store.Users().ConsumeEmailVerificationSecret(ctx, claims.Subject, claims.ID, next)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: verification secret superseded", ErrInvalidToken)
	}
	return nil
}

func (s *AccountService) sendVerificationMail(ctx context.Context, user domain.User) {
	now := time.Now().UTC()
	claims := tokenx.NewClaims(tokenx.TypeEmailVerification, user.ID,
		user.EmailVerificationSecret, s.EmailTTL, s.Codec.Issuer, now)
	claims.Email = user.Email

	raw, err := s.Codec.Encode(claims)
	if err != nil {
		slogx.FromContext(ctx).Error("encode verification token failed",
			slog.String("error", err.Error()))
		return
	}

	err = s.Mailer.Send(ctx, notify.Message{
		To:       user.Email,
		Template: notify.TemplateEmailVerification,
		Data:     map[string]string{"token": raw, "name": user.Name},
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("verification mail delivery failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}
}
