package domain

import "time"

// Invitation is a pending, time-boxed offer of a content role to an email
// address. The signed invitation token references this record by id;
// acceptance consumes the record, making the token single-use.
type Invitation struct {
	ID         string // ULID, also the jti of the signed invitation token
	ContentKey string
	Email      string
	Role       ContentRole
	CreatedBy  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the invitation can no longer be accepted.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
