package domain

import (
	"time"

	"github.com/google/uuid"
)

// Secret is a persisted token-signing secret. The value is encrypted at
// rest; the kid addresses it from token headers. The newest secret signs
// new tokens, older ones stay verifiable until they outlive the longest
// token TTL (refresh tokens dominate that window).
type Secret struct {
	ID             uuid.UUID
	KID            string
	ValueEncrypted []byte
	CreatedAt      time.Time
}

// RetainedUntil returns the instant after which this secret can be
// deleted without invalidating any live token.
func (s Secret) RetainedUntil(maxTokenTTL, grace time.Duration) time.Time {
	return s.CreatedAt.Add(maxTokenTTL + grace)
}
