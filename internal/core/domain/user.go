package domain

import "time"

// User is a registered principal.
type User struct {
	ID           string // ULID
	Email        string
	Name         string
	PasswordHash string // argon2 encoded
	Admin        bool

	// EmailVerified is set once the address is proven; nil until then.
	EmailVerified *time.Time

	// EmailVerificationSecret is the per-user secret embedded as jti in
	// email-verification tokens. Rotating it invalidates every previously
	// issued verification token without a revocation store.
	EmailVerificationSecret string

	// TOTPSecret enables TOTP-based step-up when set (base32 encoded).
	TOTPSecret *string

	GroupIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal is the authenticated identity derived from a validated access
// token, the input to every authorization decision.
type Principal struct {
	UserID    string
	SessionID string
	TokenID   string
	GroupIDs  []string
	Admin     bool
}

// InGroup reports membership of the given group.
func (p Principal) InGroup(groupID string) bool {
	for _, g := range p.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}
