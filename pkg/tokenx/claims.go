package tokenx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kind identifiers carried in the "token_type" claim. These values
// are persisted inside issued tokens; changing one silently invalidates
// every outstanding token of that kind.
const (
	TypeAccess            = "access"
	TypeRefresh           = "refresh"
	TypeSession           = "session"
	TypeStepUp            = "step_up"
	TypeEmailVerification = "email_verification"
	TypeInvitation        = "invitation"
)

// Default token TTLs. Overridable per service via config.
const (
	DefaultAccessTTL            = 15 * time.Minute
	DefaultRefreshTTL           = 365 * 24 * time.Hour
	DefaultSessionTTL           = 30 * time.Minute
	DefaultStepUpTTL            = 5 * time.Minute
	DefaultEmailVerificationTTL = 24 * time.Hour
	DefaultInvitationTTL        = 7 * 24 * time.Hour
)

// Claims is the signed payload shared by every token kind. Kind-specific
// fields are optional and validated by the owning token service after
// decoding, so there are no untyped claim maps or runtime casts anywhere.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType discriminates token kinds ("access", "refresh", ...).
	TokenType string `json:"token_type"`

	// SID is the session id binding a token to a device login.
	SID string `json:"sid,omitempty"`

	// Email for email-verification and invitation tokens.
	Email string `json:"email,omitempty"`

	// Browser and OS are client metadata on pre-authentication
	// session tokens.
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`

	// ContentKey and ContentRole are invitation token payload.
	ContentKey  string `json:"content_key,omitempty"`
	ContentRole string `json:"content_role,omitempty"`
}

// NewClaims builds minimally-correct claims for a token kind.
// jti must be provided by the caller: access tokens register it in the
// revocation cache, refresh tokens bind it to the session record, and
// email-verification tokens reuse the stored per-user secret.
func NewClaims(tokenType, subject, jti string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		TokenType: tokenType,
	}
}
