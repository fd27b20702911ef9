package domain

import "time"

// Token is an issued, signed token together with the metadata callers
// need without re-decoding it.
type Token struct {
	Raw       string
	ID        string // jti
	ExpiresAt time.Time
}

// TokenPair is the result of login and refresh: the session the pair is
// bound to plus the access/refresh tokens.
type TokenPair struct {
	SessionID string
	Access    Token
	Refresh   Token
}

// ClientInfo is request-derived client metadata attached to sessions.
type ClientInfo struct {
	SessionID string // empty on first login, minted by the service
	Browser   string
	OS        string
	IPAddress string
}
