package domain

import "time"

// Session is a device/browser login instance. It holds the id of the one
// refresh token currently accepted for this session: rotating that id
// invalidates all refresh tokens issued earlier for the same session.
type Session struct {
	ID             string // UUID, minted at login or taken from a session token
	UserID         string
	RefreshTokenID string

	Browser   string
	OS        string
	IPAddress string

	// Best-effort geolocation of the last refresh; empty when the
	// resolver failed or was unavailable.
	City    string
	Country string

	LastActive time.Time
	CreatedAt  time.Time
}
