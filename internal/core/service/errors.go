package service

import "errors"

// Service-level error taxonomy. Transport maps every token failure onto
// one uniform 401 body; the distinctions below exist for internal logic
// and logging only.
var (
	// ErrInvalidToken covers structural claim failures, revoked tokens
	// and unknown principals at the API edge.
	ErrInvalidToken = errors.New("service: invalid token")

	// ErrSessionMismatch reports a refresh or step-up token bound to a
	// session other than the one presented.
	ErrSessionMismatch = errors.New("service: session binding mismatch")

	ErrInvalidCredentials = errors.New("service: invalid credentials")

	ErrNotAuthenticated = errors.New("service: not authenticated")
	ErrNotAuthorized    = errors.New("service: not authorized")

	ErrContentNotFound = errors.New("service: content not found")

	// ErrInvalidInvitation covers expired, consumed and dangling
	// invitations uniformly so acceptance leaks nothing about which.
	ErrInvalidInvitation = errors.New("service: invalid invitation")

	// ErrVersionConflict surfaces a lost optimistic-concurrency race on
	// an access document; callers re-read and retry.
	ErrVersionConflict = errors.New("service: version conflict")
)
